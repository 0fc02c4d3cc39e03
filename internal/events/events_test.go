package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"internbot/internal/common"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNATSPublisherEncodesEvent(t *testing.T) {
	nc := &fakeConn{}
	publisher := newNATSPublisher(nc, nil)

	err := publisher.Publish(context.Background(), SubjectPostingCreated, PostingCreated{PostingID: 9, EmployerID: 2, Title: "Go intern"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(nc.subjects) != 1 || nc.subjects[0] != SubjectPostingCreated {
		t.Fatalf("unexpected subjects: %v", nc.subjects)
	}
	var decoded PostingCreated
	if err := json.Unmarshal(nc.payloads[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PostingID != 9 || decoded.Title != "Go intern" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestNATSPublisherReportsUnavailable(t *testing.T) {
	publisher := newNATSPublisher(&fakeConn{err: errors.New("connection closed")}, nil)
	err := publisher.Publish(context.Background(), SubjectPostingDeleted, PostingDeleted{PostingID: 1})
	if !common.Is(err, common.CodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
