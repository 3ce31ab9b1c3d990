package orchestrator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_UnknownKindIsIdle(t *testing.T) {
	o := New()
	assert.Equal(t, Entry{Status: StatusIdle}, o.Status("never_run"))
}

func TestStart_RunsToSuccessAndRecordsCount(t *testing.T) {
	o := New()
	done := make(chan struct{})

	err := o.Start(JobFetchArXiv, "2026-07-30", func() (int, error) {
		defer close(done)
		return 42, nil
	})
	require.NoError(t, err)
	<-done

	waitForStatus(t, o, JobFetchArXiv, StatusSuccess)
	entry := o.Status(JobFetchArXiv)
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, 42, entry.Count)
	assert.Equal(t, "2026-07-30", entry.Scope)
	assert.Empty(t, entry.ErrorMessage)
	require.NotNil(t, entry.LastRanAt)
}

func TestStart_FailurePopulatesErrorMessage(t *testing.T) {
	o := New()
	done := make(chan struct{})

	err := o.Start(JobGenContent, "all", func() (int, error) {
		defer close(done)
		return 0, errors.New("enrichment backend unavailable")
	})
	require.NoError(t, err)
	<-done

	waitForStatus(t, o, JobGenContent, StatusError)
	entry := o.Status(JobGenContent)
	assert.Equal(t, StatusError, entry.Status)
	assert.Equal(t, "enrichment backend unavailable", entry.ErrorMessage)
}

func TestStart_RejectsConcurrentLaunchOfSameKind(t *testing.T) {
	o := New()
	release := make(chan struct{})
	started := make(chan struct{})

	err := o.Start(JobGenCandidatePool, "", func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	require.NoError(t, err)
	<-started

	err = o.Start(JobGenCandidatePool, "", func() (int, error) { return 0, nil })
	var alreadyRunning *ErrAlreadyRunning
	require.ErrorAs(t, err, &alreadyRunning)
	assert.Equal(t, JobGenCandidatePool, alreadyRunning.Kind)

	close(release)
	waitForStatus(t, o, JobGenCandidatePool, StatusSuccess)
}

func TestStart_DifferentKindsRunConcurrently(t *testing.T) {
	o := New()
	var wg sync.WaitGroup
	wg.Add(2)

	require.NoError(t, o.Start(JobFetchArXiv, "", func() (int, error) { defer wg.Done(); return 1, nil }))
	require.NoError(t, o.Start(JobGenRecommendation, "", func() (int, error) { defer wg.Done(); return 2, nil }))
	wg.Wait()

	waitForStatus(t, o, JobFetchArXiv, StatusSuccess)
	waitForStatus(t, o, JobGenRecommendation, StatusSuccess)

	all := o.StatusAll()
	assert.Len(t, all, 2)
}

func TestConferenceJobKind_FormatsPerConferencePerPhase(t *testing.T) {
	assert.Equal(t, "conference:neurips2024:import", ConferenceJobKind("neurips2024", "import"))
}

// waitForStatus polls until kind reaches want or the deadline passes, since
// Start's completion runs asynchronously in a goroutine.
func waitForStatus(t *testing.T, o *Orchestrator, kind string, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.Status(kind).Status == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %q did not reach status %q in time, got %q", kind, want, o.Status(kind).Status)
}
