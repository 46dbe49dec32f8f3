package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Outcome is one entry of the weighted label set, in declared order.
type Outcome struct {
	Label       string
	Probability float64
	Multiplier  float64
}

// Table is validated once at load. Probabilities are cumulative half-open
// intervals [low, high) in declared order, the last closed at 100.
type Table struct {
	outcomes []Outcome
}

const probabilityTolerance = 1e-9

func NewTable(outcomes []Outcome) (Table, error) {
	if len(outcomes) == 0 {
		return Table{}, errors.New("empty outcome table")
	}

	sum := 0.0
	for _, o := range outcomes {
		if o.Probability <= 0 {
			return Table{}, fmt.Errorf("outcome %s: probability must be positive", o.Label)
		}
		if o.Multiplier <= 0 {
			return Table{}, fmt.Errorf("outcome %s: multiplier must be positive", o.Label)
		}
		sum += o.Probability
	}

	if math.Abs(sum-100) > probabilityTolerance {
		return Table{}, fmt.Errorf("outcome probabilities sum to %v, want 100", sum)
	}

	return Table{outcomes: append([]Outcome(nil), outcomes...)}, nil
}

func (t Table) Has(label string) bool {
	for _, o := range t.outcomes {
		if o.Label == label {
			return true
		}
	}
	return false
}

func (t Table) Multiplier(label string) float64 {
	for _, o := range t.outcomes {
		if o.Label == label {
			return o.Multiplier
		}
	}
	return 0
}

func (t Table) Labels() []string {
	labels := make([]string, len(t.outcomes))
	for i, o := range t.outcomes {
		labels[i] = o.Label
	}
	return labels
}

func (t Table) pick(p float64) string {
	cum := 0.0
	for _, o := range t.outcomes[:len(t.outcomes)-1] {
		cum += o.Probability
		if p < cum {
			return o.Label
		}
	}
	return t.outcomes[len(t.outcomes)-1].Label
}

// ComputeOutcome is the sole trust anchor for fairness verification: the
// same three inputs must yield the same label here, in the verify endpoint,
// and in any third-party reimplementation. HMAC-SHA256 keyed by the server
// seed over "clientSeed:nonce"; the first digest byte scaled to [0,100].
func ComputeOutcome(serverSeed, clientSeed string, nonce int, t Table) string {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(clientSeed + ":" + strconv.Itoa(nonce)))

	p := float64(h.Sum(nil)[0]) / 255 * 100

	return t.pick(p)
}

// SeedHash is the commitment function: publishing SeedHash(s) before a round
// binds the provider to s.
func SeedHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
