package replay

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-autonomy/vigil/pkg/fingerprint"
	"github.com/meridian-autonomy/vigil/pkg/ledger"
)

func buildLedger(t *testing.T, n int) []ledger.Record {
	t.Helper()
	l := ledger.New(fingerprint.NewDemo(), func() string { return "fixed" })
	for i := 0; i < n; i++ {
		kind := ledger.KindPlain
		if i%2 == 1 {
			kind = ledger.KindReceipt
		}
		l.Append(time.Duration(i)*time.Second, kind, "EVENT", "detail", "", ledger.SeverityInfo)
	}
	return l.RecordsInOrder()
}

func TestReplayCleanLedger(t *testing.T) {
	result, err := Replay(buildLedger(t, 10))
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 10, result.TotalRecords)
	assert.Equal(t, 5, result.TotalReceipts)
	assert.Empty(t, result.SeqBreaks)
	assert.Empty(t, result.ChainBreaks)
}

func TestReplayEmpty(t *testing.T) {
	result, err := Replay(nil)
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Zero(t, result.TotalRecords)
}

func TestReplayDetectsGap(t *testing.T) {
	recs := buildLedger(t, 6)
	recs = append(recs[:2], recs[3:]...) // drop seq 3

	result, err := Replay(recs)
	require.NoError(t, err)
	assert.False(t, result.SeqValid)
	assert.False(t, result.Valid())
}

func TestReplayDetectsDuplicate(t *testing.T) {
	recs := buildLedger(t, 4)
	recs = append(recs, recs[3]) // duplicate seq 4

	result, err := Replay(recs)
	require.NoError(t, err)
	assert.False(t, result.SeqValid)
}

func TestReplayDetectsChainBreak(t *testing.T) {
	recs := buildLedger(t, 5)
	recs[2].PrevFingerprint = "forged"

	result, err := Replay(recs)
	require.NoError(t, err)
	assert.False(t, result.ChainValid)
	assert.NotEmpty(t, result.ChainBreaks)
}

func TestReplayDetectsTimestampRegression(t *testing.T) {
	recs := buildLedger(t, 5)
	recs[3].Elapsed = 0 // earlier than record 2

	result, err := Replay(recs)
	require.NoError(t, err)
	assert.False(t, result.OrderValid)
}

func TestReplayDetectsLifecycleFaults(t *testing.T) {
	recs := buildLedger(t, 4)
	recs[0].Lifecycle = ledger.LifecycleSynced // plain record with lifecycle
	recs[1].Lifecycle = "LIMBO"                // receipt with unknown state

	result, err := Replay(recs)
	require.NoError(t, err)
	assert.False(t, result.LifecycleValid)
	assert.Len(t, result.LifecycleFaults, 2)
}

func TestReplayReasonSummary(t *testing.T) {
	l := ledger.New(fingerprint.NewDemo(), func() string { return "fixed" })
	l.Append(0, ledger.KindPlain, "A", "", "LINK_DOWN", ledger.SeverityWarn)
	l.Append(0, ledger.KindPlain, "B", "", "LINK_DOWN", ledger.SeverityWarn)
	l.Append(0, ledger.KindPlain, "C", "", "STOP_RULE", ledger.SeverityCritical)

	result, err := Replay(l.RecordsInOrder())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ReasonSummary["LINK_DOWN"])
	assert.Equal(t, 1, result.ReasonSummary["STOP_RULE"])
}

func TestExportRoundTrip(t *testing.T) {
	recs := buildLedger(t, 8)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, recs))

	result, err := FromReader(&buf)
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 8, result.TotalRecords)
}
