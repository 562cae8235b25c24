package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/parasheet/internal/layout"
	"github.com/vk/parasheet/internal/testutil"
	"github.com/vk/parasheet/internal/textenc"
	"github.com/vk/parasheet/internal/tfstate"
	"github.com/vk/parasheet/internal/xlsx"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

// setupAppTest creates an app on an in-memory filesystem seeded with files.
func setupAppTest(t *testing.T, cfg Config, files map[string]string) (*App, afero.Fs, *testutil.SafeBuffer) {
	t.Helper()

	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, files)

	cfg.LogLevel = "debug"
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "parasheet.hcl"
	}
	c, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	a, err := NewApp(logBuffer, c, WithFs(fs), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("PARASHEET_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return a, fs, logBuffer
}

func vpcState(t *testing.T) string {
	return string(testutil.StateJSON(t,
		testutil.StateResource{Type: "aws_vpc", Name: "main", Values: `{"cidr_block": "10.0.0.0/16", "id": "vpc-1", "tags": {"Name": "main"}, "ipv6_cidr_block": null}`},
		testutil.StateResource{Type: "aws_subnet", Name: "a", Values: `{"cidr_block": "10.0.1.0/24", "vpc_id": "vpc-1"}`},
	))
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		want    Config
		wantErr string
	}{
		{
			name: "defaults",
			cfg:  Config{Input: "tf.json"},
			want: Config{Input: "tf.json", Mode: ModeGenerate, LayoutCSV: DefaultLayoutCSV},
		},
		{
			name: "explicit values kept",
			cfg:  Config{Input: "tf.json", Mode: ModeAnalyze, LayoutCSV: "l.csv"},
			want: Config{Input: "tf.json", Mode: ModeAnalyze, LayoutCSV: "l.csv"},
		},
		{name: "missing input", cfg: Config{Input: "  "}, wantErr: "Input is a required"},
		{name: "unknown mode", cfg: Config{Input: "tf.json", Mode: "render"}, wantErr: `unknown mode "render"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestNewApp_InvalidSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{"parasheet.hcl": `output_dir = ""`})
	cfg, err := NewConfig(Config{Input: "tf.json", ConfigPath: "parasheet.hcl"})
	require.NoError(t, err)

	_, err = NewApp(&bytes.Buffer{}, cfg, WithFs(fs))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_dir")
}

func TestRun_AnalyzeThenGenerate(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"tf.json": vpcState(t)}
	analyzeApp, fs, _ := setupAppTest(t, Config{Input: "tf.json", Mode: ModeAnalyze}, files)

	// --- Act ---
	require.NoError(t, analyzeApp.Run(context.Background()))

	// --- Assert ---
	l, enc, err := layout.ReadFile(fs, DefaultLayoutCSV)
	require.NoError(t, err)
	assert.Equal(t, textenc.UTF8BOM, enc)
	rows := l.Keys()
	assert.Len(t, rows, 6)
	cidr := rows[layout.Key{ResourceType: "aws_vpc", AttributePath: "cidr_block"}]
	assert.Equal(t, "aws_vpc", cidr.SheetName)
	assert.Equal(t, layout.RequiredFlag, cidr.Required)
	assert.Empty(t, rows[layout.Key{ResourceType: "aws_vpc", AttributePath: "ipv6_cidr_block"}].Required)

	// --- Act ---
	generateApp, _, _ := setupAppTest(t, Config{Input: "tf.json"}, nil)
	generateApp.fs = fs
	out, err := generateApp.generate(context.Background(), mustResources(t, generateApp))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("outputs", "tf_params_20261016-0930.md"), out.Markdown)
	assert.Equal(t, filepath.Join("outputs", "tf_params_20261016-0930.xlsx"), out.Excel)

	md, err := afero.ReadFile(fs, out.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## aws_vpc\n")
	assert.Contains(t, string(md), "@resource_type aws_subnet\n")
	assert.Contains(t, string(md), "10.0.0.0/16")
	assert.NotContains(t, string(md), "ipv6_cidr_block")

	raw, err := afero.ReadFile(fs, out.Excel)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"aws_vpc", "aws_subnet"}, wb.GetSheetList())
}

func mustResources(t *testing.T, a *App) []tfstate.Resource {
	t.Helper()
	resources, err := a.extract(context.Background())
	require.NoError(t, err)
	return resources
}

func TestRun_AnalyzePreservesEdits(t *testing.T) {
	// --- Arrange ---
	edited := "resource_type,attribute_path,sheet_name,header,required,order\r\n" +
		"aws_vpc,cidr_block,Network,CIDR,1,1\r\n"
	files := map[string]string{"tf.json": vpcState(t), "l.csv": edited}
	a, fs, _ := setupAppTest(t, Config{Input: "tf.json", Mode: ModeAnalyze, LayoutCSV: "l.csv"}, files)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	l, _, err := layout.ReadFile(fs, "l.csv")
	require.NoError(t, err)
	cidr := l.Keys()[layout.Key{ResourceType: "aws_vpc", AttributePath: "cidr_block"}]
	assert.Equal(t, "Network", cidr.SheetName)
	assert.Equal(t, "CIDR", cidr.Header)
	assert.Equal(t, "1", cidr.Order)
}

func TestRun_AnalyzeWithStaticSuggestions(t *testing.T) {
	// --- Arrange ---
	suggestions := `
headers:
  - resource_type: aws_vpc
    attribute_path: cidr_block
    header: IPv4 CIDR
sheets:
  - resource_type: aws_vpc
    group_key: network
    display_name: Network
  - resource_type: aws_subnet
    group_key: network
    display_name: Subnets
`
	files := map[string]string{"tf.json": vpcState(t), "s.yaml": suggestions}
	cfg := Config{Input: "tf.json", Mode: ModeAnalyze, Suggestions: "s.yaml", AIHeader: true, AISheet: true}
	a, fs, logs := setupAppTest(t, cfg, files)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Using static suggestions.")
	l, _, err := layout.ReadFile(fs, DefaultLayoutCSV)
	require.NoError(t, err)
	rows := l.Keys()
	assert.Equal(t, "IPv4 CIDR", rows[layout.Key{ResourceType: "aws_vpc", AttributePath: "cidr_block"}].Header)
	assert.Equal(t, "Network", rows[layout.Key{ResourceType: "aws_vpc", AttributePath: "id"}].SheetName)
	assert.Equal(t, "Network", rows[layout.Key{ResourceType: "aws_subnet", AttributePath: "vpc_id"}].SheetName)
}

func TestRun_MissingAPIKeySkipsSuggestions(t *testing.T) {
	// --- Arrange ---
	settings := "oracle {\n  api_key_env = \"PARASHEET_TEST_UNSET_KEY\"\n}\n"
	files := map[string]string{"tf.json": vpcState(t), "parasheet.hcl": settings}
	a, fs, logs := setupAppTest(t, Config{Input: "tf.json", Mode: ModeAnalyze, AIOrder: true}, files)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "No API key found")
	exists, err := afero.Exists(fs, DefaultLayoutCSV)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRun_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		files   map[string]string
		wantIs  error
		wantMsg string
	}{
		{
			name:    "generate without layout",
			cfg:     Config{Input: "tf.json"},
			wantIs:  ErrLayoutMissing,
			wantMsg: "-mode analyze",
		},
		{
			name:   "input is not a snapshot",
			cfg:    Config{Input: "tf.json", Mode: ModeAnalyze},
			files:  map[string]string{"tf.json": `[1, 2]`},
			wantIs: tfstate.ErrInvalidInputKind,
		},
		{
			name:    "input missing",
			cfg:     Config{Input: "nope.json", Mode: ModeAnalyze},
			wantMsg: "failed to read state file",
		},
		{
			name:    "suggestions file missing",
			cfg:     Config{Input: "tf.json", Mode: ModeAnalyze, Suggestions: "s.yaml", AIOrder: true},
			wantMsg: "failed to load suggestions",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			files := tc.files
			if files == nil && tc.cfg.Input == "tf.json" {
				files = map[string]string{"tf.json": vpcState(t)}
			}
			a, _, _ := setupAppTest(t, tc.cfg, files)

			err := a.Run(context.Background())

			require.Error(t, err)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestRun_GenerateFallsBackWhenNothingRequired(t *testing.T) {
	// --- Arrange ---
	csv := "resource_type,attribute_path,sheet_name,header,required,order\r\n" +
		"aws_vpc,cidr_block,VPC,CIDR,,1\r\n"
	files := map[string]string{"tf.json": vpcState(t), "l.csv": csv}
	a, fs, logs := setupAppTest(t, Config{Input: "tf.json", LayoutCSV: "l.csv", Output: "sheet.md", Excel: "sheet.xlsx"}, files)

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "No sheet has a required row")
	md, err := afero.ReadFile(fs, filepath.Join("outputs", "sheet.md"))
	require.NoError(t, err)
	assert.Equal(t, "## VPC\n\n", string(md))
	raw, err := afero.ReadFile(fs, filepath.Join("outputs", "sheet.xlsx"))
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Sheet1"}, wb.GetSheetList())
	notice, err := wb.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, xlsx.EmptyNotice, notice)
}

func TestOutputPaths(t *testing.T) {
	testCases := []struct {
		name          string
		output, excel string
		want          Outputs
	}{
		{
			name: "formatted names",
			want: Outputs{
				Markdown: filepath.Join("outputs", "tf_params_20261016-0930.md"),
				Excel:    filepath.Join("outputs", "tf_params_20261016-0930.xlsx"),
			},
		},
		{
			name:   "explicit names",
			output: "a.md",
			excel:  "b.xlsx",
			want:   Outputs{Markdown: filepath.Join("outputs", "a.md"), Excel: filepath.Join("outputs", "b.xlsx")},
		},
		{
			name:   "absolute name",
			output: "/tmp/a.md",
			want:   Outputs{Markdown: "/tmp/a.md", Excel: filepath.Join("outputs", "tf_params_20261016-0930.xlsx")},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, _, _ := setupAppTest(t, Config{Input: "dir/tf.json", Output: tc.output, Excel: tc.excel}, nil)
			assert.Equal(t, tc.want, a.outputPaths())
		})
	}
}
