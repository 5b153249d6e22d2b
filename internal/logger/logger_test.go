package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetup_levels(t *testing.T) {
	var buf bytes.Buffer

	logger := setup(&buf, false)
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Debug().Msg("hidden")
	logger.Info().Str("session", "abc").Msg("visible")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"session":"abc"`)

	buf.Reset()
	logger = setup(&buf, true)
	require.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestSetup_installsDefaults(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, false)

	zerolog.Ctx(context.Background()).Info().Msg("from context")
	log.Info().Msg("from global")

	require.Contains(t, buf.String(), "from context")
	require.Contains(t, buf.String(), "from global")
}
