// Package main runs end-to-end outreach scenarios against a running API.
//
// Each scenario creates its own lead, so runs do not interfere with each other. Scenarios cover:
//   - Sponsor first contact and qualification over email
//   - Artist first contact over SMS
//   - Listener escalation to a human
//   - Objection handling without a stage change
//   - Ending a conversation
//   - Stage-change audit events
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... STATION_ID=... go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	apiBase   string
	stationID string
	token     string
	client    = &http.Client{Timeout: 60 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...any) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

func call(method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

type lead struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

type turn struct {
	Intent       string `json:"intent"`
	Reply        string `json:"reply"`
	Stage        string `json:"stage"`
	StageChanged bool   `json:"stage_changed"`
}

func createLead(t *T, payload map[string]any) *lead {
	var l lead
	status, err := call(http.MethodPost, "/admin/leads", payload, &l)
	if err != nil || status != http.StatusCreated {
		t.fatalf("create lead: status=%d err=%v", status, err)
		return nil
	}
	return &l
}

func outbound(t *T, leadID, channel string) *turn {
	var res turn
	status, err := call(http.MethodPost, "/admin/outreach/leads/"+leadID+"/outbound", map[string]string{"channel": channel}, &res)
	if err != nil || status != http.StatusOK {
		t.fatalf("outbound: status=%d err=%v", status, err)
		return nil
	}
	return &res
}

func inbound(t *T, leadID, channel, text string) *turn {
	var res turn
	status, err := call(http.MethodPost, "/admin/outreach/leads/"+leadID+"/inbound", map[string]string{"channel": channel, "text": text}, &res)
	if err != nil || status != http.StatusOK {
		t.fatalf("inbound: status=%d err=%v", status, err)
		return nil
	}
	return &res
}

func generateToken(secret, station string) (string, error) {
	claims := jwt.MapClaims{
		"sub":        "e2e",
		"station_id": station,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func scenarioSponsorQualification(t *T) {
	l := createLead(t, map[string]any{
		"family":  "sponsor",
		"name":    "Blue Door Bakery",
		"email":   "owner@bluedoor.example",
		"profile": map[string]string{"business_type": "bakery"},
	})
	if l == nil {
		return
	}
	t.check("lead starts in discovery", l.Stage == "discovery")

	first := outbound(t, l.ID, "email")
	if first == nil {
		return
	}
	t.check("first contact uses initial outreach", first.Intent == "initial_outreach")
	t.check("stage moves to contacted", first.Stage == "contacted" && first.StageChanged)
	t.check("reply is not empty", first.Reply != "")

	reply := inbound(t, l.ID, "email", "Sure, tell me about your pricing")
	if reply == nil {
		return
	}
	t.check("pricing question pitches packages", reply.Intent == "pitch_packages")
	t.check("stage moves to interested", reply.Stage == "interested")
}

func scenarioArtistFirstContact(t *T) {
	l := createLead(t, map[string]any{
		"family":  "artist",
		"name":    "Dee Rivers",
		"phone":   "+15005550006",
		"profile": map[string]string{"genre": "soul"},
	})
	if l == nil {
		return
	}
	res := outbound(t, l.ID, "sms")
	if res == nil {
		return
	}
	t.check("artist first contact sent", res.Intent == "initial_outreach")
	t.check("sms reply fits one segment", len(res.Reply) <= 320)
}

func scenarioListenerEscalation(t *T) {
	l := createLead(t, map[string]any{
		"family":        "listener_growth",
		"name":          "Sam",
		"social_handle": "sam.listens",
	})
	if l == nil {
		return
	}
	if outbound(t, l.ID, "social") == nil {
		return
	}
	res := inbound(t, l.ID, "social", "Can I talk to a real person?")
	if res == nil {
		return
	}
	t.check("escalation detected", res.Intent == "escalate_to_human")
	t.check("escalation keeps stage", !res.StageChanged)
}

func scenarioObjection(t *T) {
	l := createLead(t, map[string]any{
		"family": "sponsor",
		"name":   "Corner Garage",
		"email":  "service@garage.example",
	})
	if l == nil {
		return
	}
	if outbound(t, l.ID, "email") == nil {
		return
	}
	res := inbound(t, l.ID, "email", "Not interested, too expensive")
	if res == nil {
		return
	}
	t.check("objection handled", res.Intent == "handle_objection")
	t.check("objection keeps stage", res.Stage == "contacted")
}

func scenarioEndConversation(t *T) {
	l := createLead(t, map[string]any{
		"family": "artist",
		"name":   "The Lanterns",
		"email":  "band@lanterns.example",
	})
	if l == nil {
		return
	}
	if outbound(t, l.ID, "email") == nil {
		return
	}
	status, err := call(http.MethodPost, "/admin/outreach/leads/"+l.ID+"/end", map[string]string{"channel": "email"}, nil)
	t.check("end returns 200", err == nil && status == http.StatusOK)

	status, err = call(http.MethodGet, "/admin/outreach/leads/"+l.ID+"/conversation?channel=email", nil, nil)
	t.check("ended conversation is gone", err == nil && status == http.StatusNotFound)
}

func scenarioStageEvents(t *T) {
	l := createLead(t, map[string]any{
		"family": "listener_growth",
		"name":   "Robin",
		"email":  "robin@example.com",
	})
	if l == nil {
		return
	}
	if outbound(t, l.ID, "email") == nil {
		return
	}
	q := url.Values{"lead_id": {l.ID}, "type": {"pipeline.stage_changed"}}
	var out struct {
		Events []map[string]any `json:"events"`
	}
	status, err := call(http.MethodGet, "/admin/outreach/events?"+q.Encode(), nil, &out)
	t.check("events query returns 200", err == nil && status == http.StatusOK)
	t.check("stage change recorded", len(out.Events) == 1)
}

func main() {
	apiBase = os.Getenv("API_BASE_URL")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	stationID = os.Getenv("STATION_ID")
	if apiBase == "" || secret == "" || stationID == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL, ADMIN_JWT_SECRET and STATION_ID required")
		os.Exit(1)
	}
	var err error
	token, err = generateToken(secret, stationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: sign token: %v\n", err)
		os.Exit(1)
	}

	scenarios := []scenario{
		{"sponsor-qualification", scenarioSponsorQualification},
		{"artist-first-contact", scenarioArtistFirstContact},
		{"listener-escalation", scenarioListenerEscalation},
		{"objection", scenarioObjection},
		{"end-conversation", scenarioEndConversation},
		{"stage-events", scenarioStageEvents},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	var results []string

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "PASS"
		if t.failed > 0 {
			status = "FAIL"
		}
		results = append(results, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range results {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		os.Exit(1)
	}
}
