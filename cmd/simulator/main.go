// Command simulator drives random traffic against the transfer engine's HTTP
// ingress, adapted from the teacher's dev/simulator load generator for the
// account/deposit/withdraw/transfer shape this engine replaces.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var baseURL = getenv("BASE_URL", "http://localhost:8081")

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type transferRequest struct {
	EventID        string          `json:"eventId"`
	TransactionID  string          `json:"transactionId"`
	FromAccountID  string          `json:"fromAccountId"`
	ToAccountID    string          `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           string          `json:"type"`
	Timestamp      time.Time       `json:"timestamp"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

func sendTransfer(from, to string, amount decimal.Decimal) {
	req := transferRequest{
		EventID:        uuid.NewString(),
		TransactionID:  uuid.NewString(),
		FromAccountID:  from,
		ToAccountID:    to,
		Amount:         amount,
		Currency:       "USD",
		Type:           "TRANSFER",
		Timestamp:      time.Now(),
		IdempotencyKey: uuid.NewString(),
	}
	body, _ := json.Marshal(req)

	start := time.Now()
	resp, err := http.Post(baseURL+"/api/v1/transactions", "application/json", bytes.NewReader(body))
	duration := time.Since(start)
	if err != nil {
		log.Printf("transfer error: %v", err)
		return
	}
	defer resp.Body.Close()
	log.Printf("transfer %s->%s status=%d duration=%s", from, to, resp.StatusCode, duration)
}

func randomTransfer(ids []string) {
	from := ids[rand.Intn(len(ids))]
	to := ids[rand.Intn(len(ids))]
	for to == from {
		to = ids[rand.Intn(len(ids))]
	}
	amount := decimal.New(int64(rand.Intn(3000)+1), -2)
	sendTransfer(from, to, amount)
}

func main() {
	rand.Seed(time.Now().UnixNano())

	const (
		numAccounts = 20
		totalOps    = 2000
		blockSize   = 50
		blockPause  = 100 * time.Millisecond
	)

	ids := make([]string, 0, numAccounts)
	for i := 0; i < numAccounts; i++ {
		ids = append(ids, fmt.Sprintf("sim-account-%d", i+1))
	}
	log.Printf("seed accounts %v directly in the store before running this simulator", ids)

	for sent := 0; sent < totalOps; {
		var wg sync.WaitGroup
		for i := 0; i < blockSize && sent < totalOps; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				randomTransfer(ids)
			}()
			sent++
		}
		wg.Wait()
		time.Sleep(blockPause)
	}
}
