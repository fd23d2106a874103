package queue

import (
	"testing"
	"time"

	"github.com/mlimaops/teagrade-backend/internal/services"
)

func TestIngestTaskPayloadRoundTrip(t *testing.T) {
	arrival := time.Date(2026, 8, 20, 6, 30, 0, 0, time.UTC)
	notice := services.Notice{
		SourceID:     "station-7",
		ContainerRef: "drops/batch-9.zip",
		ArrivalTime:  arrival,
	}

	task, err := NewIngestTask(notice)
	if err != nil {
		t.Fatalf("NewIngestTask: %v", err)
	}
	if task.Type() != TypeIngestArtifact {
		t.Fatalf("got task type %q, want %q", task.Type(), TypeIngestArtifact)
	}

	got, err := ParseIngestTask(task)
	if err != nil {
		t.Fatalf("ParseIngestTask: %v", err)
	}
	if got.SourceID != notice.SourceID || got.ContainerRef != notice.ContainerRef {
		t.Fatalf("round trip changed the notice: %+v", got)
	}
	if !got.ArrivalTime.Equal(arrival) {
		t.Fatalf("got arrival %v, want %v", got.ArrivalTime, arrival)
	}
}
