// Command attestctl is a small CLI client exercising attestationd's
// register -> submit -> fetch path end-to-end, for manual smoke-testing
// against a running server. It has no analogue in the teacher (which relies
// on its swagger UI for manual exercising) — a thin net/http client has no
// natural third-party surface in the corpus, so this uses only the standard
// library.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("addr", "http://localhost:8080", "attestationd base URL")
	flag.Parse()

	if len(flag.Args()) == 0 {
		usage()
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	switch flag.Arg(0) {
	case "demo":
		if err := runDemo(client, *baseURL); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: attestctl [-addr url] demo")
}

// runDemo registers a mock employer, submits a single attestation for it,
// then fetches that attestation back, printing each response.
func runDemo(client *http.Client, baseURL string) error {
	registerResp, err := postJSON(client, baseURL+"/api/v1/employers", map[string]any{
		"company_name":   "Acme Staffing",
		"domain":         "acme-staffing.example",
		"employee_count": 25,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Println("register:", string(registerResp))

	var registered struct {
		Data struct {
			EmployerID string `json:"employer_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(registerResp, &registered); err != nil {
		return fmt.Errorf("parse register response: %w", err)
	}

	now := time.Now().UTC()
	periodStart := now.Add(-7 * 24 * time.Hour)
	submitResp, err := postJSON(client, baseURL+"/api/v1/attestations", map[string]any{
		"employer_id":     registered.Data.EmployerID,
		"employee_wallet": "0x1111111111111111111111111111111111111111",
		"wage_amount":     200000,
		"period_start":    periodStart.Format(time.RFC3339),
		"period_end":      now.Format(time.RFC3339),
		"hours_worked":    40,
		"hourly_rate":     5000,
		"period_nonce":    fmt.Sprintf("demo-nonce-%d", now.UnixNano()),
	})
	if err != nil {
		return fmt.Errorf("submit attestation: %w", err)
	}
	fmt.Println("submit:", string(submitResp))

	var submitted struct {
		Data struct {
			AttestationID string `json:"attestation_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(submitResp, &submitted); err != nil {
		return fmt.Errorf("parse submit response: %w", err)
	}

	fetchResp, err := getJSON(client, fmt.Sprintf("%s/api/v1/attestations/%s", baseURL, submitted.Data.AttestationID))
	if err != nil {
		return fmt.Errorf("fetch attestation: %w", err)
	}
	fmt.Println("fetch:", string(fetchResp))

	return nil
}

func postJSON(client *http.Client, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func getJSON(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
