package fair

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func routeTable(t *testing.T) Table {
	t.Helper()
	table, err := NewTable([]Outcome{
		{Label: "heads", Probability: 48.65, Multiplier: 1.95},
		{Label: "tails", Probability: 48.65, Multiplier: 1.95},
		{Label: "edge", Probability: 2.7, Multiplier: 18.0},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestTableEndpointListsOutcomes(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, routeTable(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/fair/table", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Outcomes []struct {
			Label      string  `json:"label"`
			Multiplier float64 `json:"multiplier"`
		} `json:"outcomes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(body.Outcomes))
	}
	if body.Outcomes[0].Label != "heads" || body.Outcomes[2].Label != "edge" {
		t.Fatalf("declared order lost: %+v", body.Outcomes)
	}
	if body.Outcomes[2].Multiplier != 18.0 {
		t.Fatalf("edge multiplier = %v", body.Outcomes[2].Multiplier)
	}
}

func TestVerifyEndpointRecomputesOutcome(t *testing.T) {
	table := routeTable(t)
	app := fiber.New()
	RegisterRoutes(app, table)

	payload := `{"server_seed":"seed-a","client_seed":"client-a","nonce":1}`
	req := httptest.NewRequest("POST", "/fair/verify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Outcome  string `json:"outcome"`
		SeedHash string `json:"seed_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if body.Outcome != ComputeOutcome("seed-a", "client-a", 1, table) {
		t.Fatalf("endpoint outcome %q disagrees with direct computation", body.Outcome)
	}
	if body.SeedHash != SeedHash("seed-a") {
		t.Fatalf("endpoint hash disagrees with SeedHash")
	}
}

func TestVerifyEndpointRequiresServerSeed(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, routeTable(t))

	req := httptest.NewRequest("POST", "/fair/verify", strings.NewReader(`{"client_seed":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
