package billing

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sledgehq/sledge/adapter/cli"
	"github.com/sledgehq/sledge/internal/app"
	billingDomain "github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	"github.com/sledgehq/sledge/pkg/config"
)

func resetFlags() {
	statusUserID = 0
	assignUserID = 0
	assignOrder = 0
	assignPromo = ""
	backfillUserID = 0
	reconcileLimit = 500
	trialUserID = 0
	setStatusUserID = 0
	setStatusValue = ""
	setStatusStripeSub = ""
	setStatusStripeCust = ""
	setStatusCancelAtEnd = false
}

func setupApp(t *testing.T) *app.Container {
	t.Helper()
	resetFlags()
	cfg := &config.Config{
		AppEnv:                    "development",
		DatabaseDriver:            database.DriverSQLite,
		SQLitePath:                filepath.Join(t.TempDir(), "cli.db"),
		BillingFreeTierMax:        1,
		BillingStandardTrialDays:  billingDomain.DefaultTrialDays,
		BillingStandardPriceCents: billingDomain.DefaultStandardPriceCents,
	}
	c, err := app.NewContainer(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	cli.SetApp(cli.NewApp(c))
	t.Cleanup(func() {
		cli.SetApp(nil)
		c.Close()
	})
	return c
}

func insertUsers(t *testing.T, c *app.Container, emails ...string) {
	t.Helper()
	for _, email := range emails {
		_, err := c.DB.Exec(context.Background(),
			`INSERT INTO users (email, password_hash, created_at) VALUES (?, 'x', CURRENT_TIMESTAMP)`, email)
		require.NoError(t, err)
	}
}

func run(t *testing.T, cmd *cobra.Command) (string, error) {
	t.Helper()
	var output strings.Builder
	cmd.SetContext(context.Background())
	cmd.SetOut(&output)
	err := cmd.RunE(cmd, []string{})
	return output.String(), err
}

func TestCommands_NoApp(t *testing.T) {
	resetFlags()
	cli.SetApp(nil)

	for _, cmd := range []*cobra.Command{statusCmd, assignCmd, backfillCmd, reconcileCmd, trialCmd, setStatusCmd} {
		t.Run(cmd.Name(), func(t *testing.T) {
			_, err := run(t, cmd)
			assert.ErrorIs(t, err, cli.ErrNoApp)
		})
	}
}

func TestStatusCmd_NoSubscription(t *testing.T) {
	c := setupApp(t)
	insertUsers(t, c, "a@example.com")

	statusUserID = 1
	out, err := run(t, statusCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "No subscription found.")
}

func TestAssignCmd_UsesCounter(t *testing.T) {
	c := setupApp(t)
	insertUsers(t, c, "a@example.com", "b@example.com")

	assignUserID = 1
	out, err := run(t, assignCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned free tier (order 1) to user 1")

	assignUserID = 2
	assignPromo = "LAUNCH"
	out, err = run(t, assignCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned standard tier (order 2) to user 2")

	statusUserID = 2
	out, err = run(t, statusCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Tier: standard")
	assert.Contains(t, out, "Status: incomplete")
	assert.Contains(t, out, "Price: $299.00")
	assert.Contains(t, out, "Promo code: LAUNCH")
}

func TestAssignCmd_RequiresUser(t *testing.T) {
	setupApp(t)
	_, err := run(t, assignCmd)
	assert.EqualError(t, err, "--user is required")
}

func TestBackfillCmd_UsesUserPosition(t *testing.T) {
	c := setupApp(t)
	insertUsers(t, c, "a@example.com", "b@example.com", "c@example.com")

	backfillUserID = 3
	out, err := run(t, backfillCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Backfilled standard tier (order 3) for user 3")
}

func TestBackfillCmd_UnknownUser(t *testing.T) {
	setupApp(t)
	backfillUserID = 99
	_, err := run(t, backfillCmd)
	assert.Error(t, err)
}

func TestReconcileCmd(t *testing.T) {
	c := setupApp(t)
	insertUsers(t, c, "a@example.com", "b@example.com")

	out, err := run(t, reconcileCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned: 2")
	assert.Contains(t, out, "user 1: free (order 1)")
	assert.Contains(t, out, "user 2: standard (order 2)")

	out, err = run(t, reconcileCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Assigned: 0")
}

func TestTrialAndSetStatus(t *testing.T) {
	c := setupApp(t)
	insertUsers(t, c, "a@example.com", "b@example.com")
	_, err := run(t, reconcileCmd)
	require.NoError(t, err)

	trialUserID = 2
	out, err := run(t, trialCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: trialing")
	assert.Contains(t, out, "Trial days remaining: 30")

	setStatusUserID = 2
	setStatusValue = "active"
	setStatusStripeSub = "sub_123"
	setStatusStripeCust = "cus_123"
	out, err = run(t, setStatusCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: active")
	assert.Contains(t, out, "Payment setup required: false")
	assert.Contains(t, out, "Stripe subscription: sub_123")

	resetFlags()
	setStatusStripeSub = "sub_123"
	setStatusValue = "past_due"
	out, err = run(t, setStatusCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Status: past_due")
	assert.Contains(t, out, "Active access: false")
}

func TestSetStatusCmd_Validation(t *testing.T) {
	setupApp(t)

	setStatusValue = "paused"
	setStatusUserID = 1
	_, err := run(t, setStatusCmd)
	assert.EqualError(t, err, `unknown status "paused"`)

	resetFlags()
	setStatusValue = "active"
	_, err = run(t, setStatusCmd)
	assert.EqualError(t, err, "--user or --stripe-subscription is required")
}
