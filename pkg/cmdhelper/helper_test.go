package cmdhelper_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wuxler/otaserve/pkg/cmdhelper"
)

func TestNoArgs(t *testing.T) {
	newCommand := func() *cli.Command {
		return &cli.Command{
			Name:   "noop",
			Before: cli.BeforeFunc(cmdhelper.NoArgs()),
			Action: func(context.Context, *cli.Command) error { return nil },
		}
	}

	require.NoError(t, newCommand().Run(context.Background(), []string{"noop"}))

	err := newCommand().Run(context.Background(), []string{"noop", "extra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"extra"`)
}

func TestFprintf(t *testing.T) {
	buf := &bytes.Buffer{}
	cmdhelper.Fprintf(buf, "hello %s", "world")
	assert.Equal(t, "hello world\n", buf.String())

	buf.Reset()
	cmdhelper.Fprintf(buf, "done\n")
	assert.Equal(t, "done\n", buf.String())
}
