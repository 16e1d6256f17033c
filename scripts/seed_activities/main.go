// Command seed_activities pushes a JSON export of raw activity logs into the
// ingest endpoint in batches. Useful for loading legacy dashboard dumps into
// a fresh environment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type ingestResponse struct {
	Data struct {
		Inserted int `json:"inserted"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base      string
		inputPath string
		batchSize int
		timeout   time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&inputPath, "input", "activities.json", "Path to a JSON array of raw activity records")
	flag.IntVar(&batchSize, "batch", 1000, "Records per ingest request")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	records, err := loadRecords(inputPath)
	if err != nil {
		log.Fatalf("failed to load records: %v", err)
	}
	if batchSize <= 0 {
		batchSize = 1000
	}

	client := &http.Client{Timeout: timeout}
	url := strings.TrimRight(base, "/") + "/api/v1/activities"

	total := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		inserted, err := ingestBatch(client, url, records[start:end])
		if err != nil {
			log.Fatalf("batch %d-%d failed: %v", start, end, err)
		}
		total += inserted
		fmt.Printf("batch %d-%d: inserted %d\n", start, end, inserted)
	}

	fmt.Printf("done: %d records ingested from %s\n", total, inputPath)
}

func loadRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records found in %s", path)
	}
	return records, nil
}

func ingestBatch(client *http.Client, url string, batch []json.RawMessage) (int, error) {
	payload, err := json.Marshal(map[string]interface{}{"data": batch})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var parsed ingestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, body)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return 0, fmt.Errorf("%s: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parsed.Data.Inserted, nil
}
