package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestShell_RunsCommandsUntilExit(t *testing.T) {
	a := newTestApp(t, "stats\n\n  status gone \nshell\nexit\nstats\n")
	a.files.On("AccountStats", mock.Anything).Return(&client.AccountStats{TotalFiles: 2}, nil).Once()
	a.uploads.On("Status", mock.Anything, "gone").Return(nil, common.ErrNotFound)

	require.NoError(t, a.Run(context.Background(), []string{"shell"}))

	assert.Contains(t, a.out.String(), "Files: 2")
	assert.Contains(t, a.errOut.String(), "error: not found")
	assert.Contains(t, a.errOut.String(), "already in shell")
}

func TestShell_StopsAtEOF(t *testing.T) {
	a := newTestApp(t, "bogus\n")

	require.NoError(t, a.Run(context.Background(), []string{"shell"}))
	assert.Contains(t, a.errOut.String(), `unknown command "bogus"`)
}

func TestShell_StopsOnCancel(t *testing.T) {
	a := newTestApp(t, "stats\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, a.Run(ctx, []string{"shell"}), context.Canceled)
}
