package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ScannerTestSuite struct {
	suite.Suite
	tempDir string
	logs    *observer.ObservedLogs
	logger  *logger.Logger
}

func TestScannerSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}

func (suite *ScannerTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "inventory-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	core, logs := observer.New(zapcore.DebugLevel)
	suite.logs = logs
	suite.logger = logger.FromZap(zap.New(core))
}

func (suite *ScannerTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *ScannerTestSuite) touch(name string, size int) {
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.tempDir, name), make([]byte, size), 0o644))
}

func (suite *ScannerTestSuite) TestScanFindsArtifacts() {
	suite.touch("THYAO.IS_1y_1d.csv", 100)
	suite.touch("AKBNK.IS_1y_1d.parquet", 50)
	suite.touch("GARAN.IS_6mo_1h.csv", 10)

	inv, err := NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	suite.Equal(3, inv.Len())
	suite.Equal(map[string]struct{}{"THYAO.IS": {}, "AKBNK.IS": {}, "GARAN.IS": {}}, inv.Symbols())
	suite.Equal(map[string]struct{}{"THYAO.IS": {}, "AKBNK.IS": {}}, inv.SymbolsFor("1y", "1d"))
	suite.Equal(map[string]struct{}{"GARAN.IS": {}}, inv.SymbolsFor("6mo", "1h"))
	suite.Empty(inv.SymbolsFor("1y", "1h"))

	suite.Equal(filepath.Join(suite.tempDir, "AKBNK.IS_1y_1d.parquet"), inv.Entries[0].Path)
	suite.Equal(int64(50), inv.Entries[0].Size)
	suite.Equal(artifact.FormatParquet, inv.Entries[0].Key.Format)
}

func (suite *ScannerTestSuite) TestDatasets() {
	suite.touch("THYAO.IS_1y_1d.csv", 100)
	suite.touch("AKBNK.IS_1y_1d.parquet", 50)
	suite.touch("GARAN.IS_6mo_1h.csv", 10)
	suite.touch("GARAN.IS_1y_1wk.csv", 5)

	inv, err := NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	suite.Equal([]Dataset{
		{Period: "6mo", Interval: "1h", Files: 1, Bytes: 10},
		{Period: "1y", Interval: "1d", Files: 2, Bytes: 150},
		{Period: "1y", Interval: "1wk", Files: 1, Bytes: 5},
	}, inv.Datasets())
	suite.Empty(Inventory{Dir: suite.tempDir, Entries: nil}.Datasets())
}

func (suite *ScannerTestSuite) TestScanSkipsForeignEntries() {
	suite.touch("THYAO.IS_1y_1d.csv", 1)
	suite.touch("THYAO.IS_1y_1d.csv.meta.yaml", 1)
	suite.touch(".AKBNK.IS_1y_1d.csv.tmp-abc", 1)
	suite.touch("notes.txt", 1)
	suite.touch("download_summary_20240101_120000.csv", 1)
	suite.touch("thyao%2eis_1y_1d.csv", 1)
	suite.Require().NoError(os.Mkdir(filepath.Join(suite.tempDir, "GARAN.IS_1y_1d.csv"), 0o755))

	inv, err := NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	suite.Equal(1, inv.Len())
	suite.Equal("THYAO.IS", inv.Entries[0].Key.Symbol)
	suite.Equal(6, suite.logs.FilterMessageSnippet("skipping").Len())
}

func (suite *ScannerTestSuite) TestScanMissingDirectory() {
	inv, err := NewScanner(filepath.Join(suite.tempDir, "absent"), suite.logger).Scan()
	suite.NoError(err)
	suite.Equal(0, inv.Len())
	suite.Empty(inv.Symbols())
}

func (suite *ScannerTestSuite) TestScanUnreadableDirectory() {
	suite.touch("plain-file", 1)

	_, err := NewScanner(filepath.Join(suite.tempDir, "plain-file"), suite.logger).Scan()
	suite.Error(err)
	suite.True(errors.IsFatal(err))
}

func (suite *ScannerTestSuite) TestScanIsReadOnly() {
	suite.touch("THYAO.IS_1y_1d.csv", 1)
	suite.touch(".tmp-leftover", 1)

	before, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)

	_, err = NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	after, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Equal(len(before), len(after))
}

func (suite *ScannerTestSuite) TestProgress() {
	suite.touch("THYAO.IS_1y_1d.csv", 100)
	suite.touch("AKBNK.IS_1y_1d.csv", 40)
	suite.touch("OTHER_1y_1d.csv", 1000)
	suite.touch("GARAN.IS_6mo_1d.csv", 7)

	inv, err := NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	universe, err := types.NewUniverse([]string{"THYAO.IS", "GARAN.IS", "AKBNK.IS"})
	suite.Require().NoError(err)

	progress := Progress(universe, inv, "1y", "1d")

	suite.Equal(3, progress.Total)
	suite.Equal(2, progress.Downloaded)
	suite.Equal([]string{"GARAN.IS"}, progress.Missing)
	suite.Equal(66.7, progress.Percent)
	suite.Len(progress.Files, 2)
	suite.Equal(int64(140), progress.TotalBytes)
	suite.False(progress.IsComplete())
}

func (suite *ScannerTestSuite) TestProgressComplete() {
	suite.touch("A_1y_1d.csv", 1)

	inv, err := NewScanner(suite.tempDir, suite.logger).Scan()
	suite.Require().NoError(err)

	universe, err := types.NewUniverse([]string{"A"})
	suite.Require().NoError(err)

	progress := Progress(universe, inv, "1y", "1d")
	suite.True(progress.IsComplete())
	suite.Equal(100.0, progress.Percent)
}
