package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testProgram = "snarkcollective_program.aleo"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:      srv.URL,
		Network:      "testnet",
		ProgramID:    testProgram,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestGetRound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/testnet/program/"+testProgram+"/mapping/rounds/1u8" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`"{\n  round_id: 7u32,\n  is_active: true,\n  approved_projects: 1u16,\n  submitted_projects: 2u16\n}"`))
	})

	round, err := client.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if round.RoundID != 7 || !round.IsActive || round.ApprovedProjects != 1 || round.SubmittedProjects != 2 {
		t.Fatalf("round mismatch: %+v", round)
	}
}

func TestGetRoundMissingField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{ round_id: 4u32, approved_projects: 0u16, submitted_projects: 3u16 }`))
	})

	round, err := client.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if round.IsActive {
		t.Fatalf("expected is_active default false")
	}
	if round.RoundID != 4 || round.SubmittedProjects != 3 {
		t.Fatalf("round mismatch: %+v", round)
	}
}

func TestGetRoundGarbageBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	round, err := client.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if round.RoundID != 0 || round.IsActive || round.SubmittedProjects != 0 {
		t.Fatalf("expected zero round, got %+v", round)
	}
}

func TestGetRoundHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	if _, err := client.GetRound(context.Background(), 1); err == nil {
		t.Fatalf("expected error for non-OK round read")
	}
}

func TestGetRoundRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{ round_id: 1u32, is_active: false, approved_projects: 0u16, submitted_projects: 0u16 }`))
	})

	round, err := client.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if round.RoundID != 1 {
		t.Fatalf("round mismatch: %+v", round)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestGetProjectDetails(t *testing.T) {
	body := `{
  project_owner: aleo1owner,
  collected_amount: 250u64,
  joined_round: 7u32,
  num_supporters: 4u32,
  is_approved: true,
  is_claimed: false,
  project_details: {
    title: 25185field,
    img: 6778217field,
    description: 6422625field
  }
}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/mapping/"+MappingApproved+"/123field") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	})

	info, err := client.GetProjectDetails(context.Background(), MappingApproved, "123field")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if info == nil {
		t.Fatalf("expected project")
	}
	if info.ProjectOwner != "aleo1owner" || info.CollectedAmount != 250 || info.JoinedRound != 7 || info.NumSupporters != 4 {
		t.Fatalf("project mismatch: %+v", info)
	}
	if !info.IsApproved || info.IsClaimed {
		t.Fatalf("flags mismatch: %+v", info)
	}
	d := info.ProjectDetails
	if d.Title != "ab" || d.Img != "img" || d.Description != "a" {
		t.Fatalf("decoded details mismatch: %+v", d)
	}
	if d.TitleField != "25185field" || d.ImgField != "6778217field" || d.DescriptionField != "6422625field" {
		t.Fatalf("original fields mismatch: %+v", d)
	}
}

func TestGetProjectDetailsNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"missing": func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
		"null":    func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("null")) },
		"empty":   func(w http.ResponseWriter, r *http.Request) {},
		"garbage": func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not a struct")) },
	}
	for name, handler := range cases {
		client := newTestClient(t, handler)
		info, err := client.GetProjectDetails(context.Background(), MappingSubmitted, "1field")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if info != nil {
			t.Fatalf("%s: expected nil project, got %+v", name, info)
		}
	}
}

func TestGetProjectDetailsMissingNested(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{ project_owner: aleo1owner, is_approved: false }`))
	})

	info, err := client.GetProjectDetails(context.Background(), MappingSubmitted, "1field")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if info == nil || info.ProjectOwner != "aleo1owner" {
		t.Fatalf("unexpected project: %+v", info)
	}
	if info.ProjectDetails.Title != "" || info.ProjectDetails.TitleField != "" {
		t.Fatalf("expected empty details: %+v", info.ProjectDetails)
	}
}

func TestGetProjectDetailsUnknownMapping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := client.GetProjectDetails(context.Background(), "rounds", "1field"); err == nil {
		t.Fatalf("expected error for unknown mapping")
	}
}
