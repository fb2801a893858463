package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

func TestAuditStream(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/audit", NewAuditStreamHandler(s.registry, quiet, nil))
	mux.Handle("/", s.handler)

	fisher := s.login("ravi@coast.org", "FISHERMAN")
	ngo := s.login("verify@bluemarine.org", "NGO")
	corp := s.login("esg@acme.com", "CORPORATE")

	site := CreateSubmissionRequest{
		ImageURL:      "https://img.example/site.jpg",
		Location:      domain.Location{Lat: 8.5, Lng: 76.9, Region: "Kerala"},
		EcosystemType: "SEAGRASS",
	}
	if rec := s.do(http.MethodPost, "/api/submissions", fisher, site); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	// The JWT middleware wraps the whole server so ?token= authenticates the upgrade
	srv := httptest.NewServer(s.handlerWith(mux))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/audit?token="

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+corp, nil); err == nil {
		t.Fatal("corporate users must not stream the audit log")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+ngo, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var backlog domain.AuditLog
	if err := conn.ReadJSON(&backlog); err != nil {
		t.Fatalf("read backlog: %v", err)
	}
	if backlog.Action != domain.ActionSubmissionCreate {
		t.Fatalf("backlog entry = %+v", backlog)
	}

	if rec := s.do(http.MethodPost, "/api/submissions/"+backlog.TargetID+"/review", ngo, DecisionRequest{Decision: "flag"}); rec.Code != http.StatusOK {
		t.Fatalf("flag: %d %s", rec.Code, rec.Body.String())
	}
	var live domain.AuditLog
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatalf("read live: %v", err)
	}
	if live.Action != domain.ActionNGOFlag || live.TargetID != backlog.TargetID {
		t.Fatalf("live entry = %+v", live)
	}
}
