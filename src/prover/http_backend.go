package prover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/financoor/backend/src/commitment"
	"github.com/financoor/backend/src/logger"
	"github.com/financoor/backend/src/models"
)

// HTTPBackend delegates proving to the external zero-knowledge proving
// service. Proof and public values travel base64-encoded, the verification
// key hash hex-encoded, matching the service's artifact contract.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		// Per-call deadlines come from the caller's context; the client
		// itself stays unbounded so long proving runs are not cut short.
		client: &http.Client{},
	}
}

type proveRequest struct {
	Request *models.TaxRequest `json:"request"`
}

type proveResponse struct {
	Proof            string `json:"proof"`
	PublicValues     string `json:"public_values"`
	VKeyHash         string `json:"vk_hash"`
	TotalTaxPaisa    string `json:"total_tax_paisa"`
	LedgerCommitment string `json:"ledger_commitment"`
}

type vkeyResponse struct {
	VKeyHash string `json:"vk_hash"`
}

func (b *HTTPBackend) Prove(ctx context.Context, input *ProvingInput) (*models.ProofResult, error) {
	body, err := json.Marshal(proveRequest{Request: input.Request})
	if err != nil {
		return nil, fmt.Errorf("marshalling prove request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/prove", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	logger.L.Info("Submitting proving request to backend", "url", b.baseURL, "commitment", input.Commitment.Hex())
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling proving backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("proving backend returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out proveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding proving backend response: %w", err)
	}

	proof, err := base64.StdEncoding.DecodeString(out.Proof)
	if err != nil {
		return nil, fmt.Errorf("decoding proof bytes: %w", err)
	}
	publicValues, err := base64.StdEncoding.DecodeString(out.PublicValues)
	if err != nil {
		return nil, fmt.Errorf("decoding public values bytes: %w", err)
	}

	// The backend re-derives the tuple from the request; if its encoding
	// disagrees with ours the proof attests to something else entirely.
	if !bytes.Equal(publicValues, input.PublicValuesBytes) {
		return nil, &commitment.EncodingMismatchError{Reason: "proving backend public values differ from locally encoded tuple"}
	}

	return &models.ProofResult{
		Commitment:    input.Commitment,
		TotalTaxPaisa: input.PublicValues.TotalTaxPaisa.Dec(),
		UserTypeCode:  input.PublicValues.UserTypeCode,
		Used44ADA:     input.PublicValues.Used44ADA,
		Proof:         proof,
		PublicValues:  publicValues,
		VKeyHash:      out.VKeyHash,
	}, nil
}

func (b *HTTPBackend) VKeyHash(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/vkey", nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling proving backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proving backend returned status %d for vkey", resp.StatusCode)
	}
	var out vkeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding vkey response: %w", err)
	}
	return out.VKeyHash, nil
}
