package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcclellann/pawnledger/pkg/config"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const promptTemplate = `You are an expert in valuing used phones on the Vietnamese market.
Give a short answer: the quick-sale price of this used device in Vietnam, and a safe pawn loan amount (60-70%% of that price) for: %s %s, condition: %q.
Amounts are in VND. Reply with strict JSON only.`

// GeminiClient asks Gemini for an estimate through the genai SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// NewGeminiClient builds a client from cfg. A nil httpClient gets one with
// cfg.RequestTimeout. An empty cfg.Endpoint keeps the SDK's default base URL.
func NewGeminiClient(ctx context.Context, cfg config.ValuationConfig, httpClient *http.Client) (*GeminiClient, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.Endpoint},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	perMinute := max(1, cfg.RatePerMinute)
	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}, nil
}

// geminiEstimate is the JSON the model is told to produce.
type geminiEstimate struct {
	MarketValue   decimal.Decimal `json:"marketValue"`
	SuggestedLoan decimal.Decimal `json:"suggestedLoan"`
	RiskLevel     string          `json:"riskLevel"`
	Advice        string          `json:"advice"`
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"marketValue":   {Type: genai.TypeNumber, Description: "Expected quick-sale price in Vietnam (VND)"},
		"suggestedLoan": {Type: genai.TypeNumber, Description: "Safe pawn amount, 60-70% of market value (VND)"},
		"riskLevel":     {Type: genai.TypeString, Description: "Risk level: Low, Medium, High"},
		"advice":        {Type: genai.TypeString, Description: "Short note on the price and advice"},
	},
	Required: []string{"marketValue", "suggestedLoan", "riskLevel", "advice"},
}

// Estimate implements Estimator.
func (c *GeminiClient) Estimate(ctx context.Context, brand, model, condition string) (*Estimate, error) {
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(fmt.Sprintf(promptTemplate, brand, model, condition)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrBadResponse)
	}

	return parseEstimate(resp.Text())
}

func parseEstimate(text string) (*Estimate, error) {
	var ge geminiEstimate
	if err := json.Unmarshal([]byte(text), &ge); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if !ge.MarketValue.IsPositive() || ge.SuggestedLoan.IsNegative() {
		return nil, fmt.Errorf("%w: implausible amounts %s/%s", ErrBadResponse, ge.MarketValue, ge.SuggestedLoan)
	}
	return &Estimate{
		MarketValue:   ge.MarketValue.Round(0),
		SuggestedLoan: ge.SuggestedLoan.Round(0),
		RiskLevel:     ge.RiskLevel,
		Advice:        ge.Advice,
	}, nil
}
