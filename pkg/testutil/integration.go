package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides a context and a scratch directory for
// end-to-end tests that read and write real files.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "phaeton-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Path returns a path inside the suite's scratch directory.
func (s *IntegrationTestSuite) Path(name string) string {
	return s.tempDir + string(os.PathSeparator) + name
}

// CreateTempFile writes content to a file in the scratch directory.
func (s *IntegrationTestSuite) CreateTempFile(name, content string) string {
	return WriteFile(s.T(), s.tempDir, name, content)
}

// IntegrationTest skips the calling test in -short mode.
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// GenerateCSV builds a CSV document with a header and n rows. Column values
// are produced by gen for each (row, column) pair.
func GenerateCSV(header []string, n int, gen func(row, col int) string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for r := 0; r < n; r++ {
		for c := range header {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteString(gen(r, c))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Seq returns a generator emitting "<prefix><row>" for every column.
func Seq(prefix string) func(row, col int) string {
	return func(row, _ int) string { return fmt.Sprintf("%s%d", prefix, row) }
}
