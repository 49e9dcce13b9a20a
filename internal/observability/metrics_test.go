package observability

import (
	"testing"
	"time"

	"github.com/Olexandr88/indexreg/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	RecordRegistration(true)
	RecordRegistration(false)
	RecordDeregistration(true)
	SetGlobalOperators(3)
	SetQuorumSize(0, 2)
	RecordJournalAppend()
}
