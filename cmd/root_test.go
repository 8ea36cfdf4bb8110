package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aplaceforseniors/listings-cli/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"ingest", "canonicalize", "dedupe", "import", "serve", "status"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "listings-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_RequiredFlags(t *testing.T) {
	inFlag := ingestCmd.Flags().Lookup("in")
	require.NotNil(t, inFlag, "ingest command should have --in flag")

	sourceFlag := ingestCmd.Flags().Lookup("source")
	require.NotNil(t, sourceFlag, "ingest command should have --source flag")
}

func TestCanonicalizeCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"in", "out", "source", "unmapped-out"} {
		flag := canonicalizeCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "canonicalize should have --%s flag", flagName)
	}
}

func TestDedupeCommand_Flags(t *testing.T) {
	applyFlag := dedupeCmd.Flags().Lookup("apply")
	require.NotNil(t, applyFlag, "dedupe command should have --apply flag")
	assert.Equal(t, "false", applyFlag.DefValue)

	reviewFlag := dedupeCmd.Flags().Lookup("review-out")
	require.NotNil(t, reviewFlag, "dedupe command should have --review-out flag")
}

func TestImportCommand_Flags(t *testing.T) {
	statusFlag := importCmd.Flags().Lookup("status")
	require.NotNil(t, statusFlag, "import command should have --status flag")
	assert.Equal(t, "draft", statusFlag.DefValue)

	trashFlag := importCmd.Flags().Lookup("trash-stale")
	require.NotNil(t, trashFlag, "import command should have --trash-stale flag")
	assert.Equal(t, "false", trashFlag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Source
		wantErr bool
	}{
		{in: "seniorplace", want: model.SourceSeniorPlace},
		{in: "Senior-Place", want: model.SourceSeniorPlace},
		{in: " SENIORLY ", want: model.SourceSeniorly},
		{in: "other", want: model.SourceOther},
		{in: "zillow", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSource(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "parseSource(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "parseSource(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
