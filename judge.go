/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// semanticJudge is an optional external collaborator consulted for scripts
// the phonetic codecs cannot encode. Every call is timeout-bounded and every
// failure path returns an error so callers fall back to local matching.
type semanticJudge struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

type judgeRequest struct {
	Guess     string   `json:"guess"`
	Target    string   `json:"target"`
	Forbidden []string `json:"forbidden,omitempty"`
}

type judgeVerdict struct {
	IsMatch     bool    `json:"is_match"`
	IsForbidden bool    `json:"is_forbidden"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

func newSemanticJudge(url string, timeout time.Duration) *semanticJudge {
	if url == "" {
		return nil
	}

	return &semanticJudge{
		url:     url,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (j *semanticJudge) judge(ctx context.Context, guess, target string, forbidden []string) (*judgeVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	body, err := json.Marshal(judgeRequest{
		Guess:     guess,
		Target:    target,
		Forbidden: forbidden,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge returned status %d", resp.StatusCode)
	}

	verdict := &judgeVerdict{}
	if err := json.NewDecoder(resp.Body).Decode(verdict); err != nil {
		return nil, err
	}

	return verdict, nil
}
