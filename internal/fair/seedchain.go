package fair

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// SeedChain pre-commits a reversed hash chain: element i is the hash
// preimage of element i-1, so revealing the seed for round k lets anyone
// check hash(seed_k) against the commitment published before the round.
// Element 0 is published at generation time and never used for a round.
type SeedChain struct {
	mu     sync.Mutex
	length int

	chain      []string
	index      int
	clientSeed string
	nonce      int
}

// PublicData is what observers may see before a round resolves.
type PublicData struct {
	Commitment string `json:"commitment"`
	ClientSeed string `json:"client_seed"`
	Nonce      int    `json:"nonce"`
	Remaining  int    `json:"remaining"`
}

const DefaultChainLength = 10000

func NewSeedChain(length int) *SeedChain {
	if length < 2 {
		length = DefaultChainLength
	}
	s := &SeedChain{length: length}
	s.mu.Lock()
	s.regenerate()
	s.mu.Unlock()
	return s
}

// regenerate builds a fresh chain and commitment. Callers hold mu. The
// nonce survives regeneration so it stays monotonic for the process.
func (s *SeedChain) regenerate() {
	chain := make([]string, s.length)
	chain[0] = randomHex(32)
	for i := 1; i < s.length; i++ {
		chain[i] = SeedHash(chain[i-1])
	}

	// Reverse so element 0 is the last-generated, hardest-to-invert value.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	s.chain = chain
	s.index = 1
	s.clientSeed = randomHex(16)
}

// CurrentServerSeed returns the seed for the round about to be generated.
// Exhaustion regenerates transparently; callers never see it.
func (s *SeedChain) CurrentServerSeed() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= s.length {
		s.regenerate()
	}
	return s.chain[s.index]
}

// Advance consumes the current seed after its round finished.
func (s *SeedChain) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index++
	s.nonce++
	if s.index >= s.length {
		s.regenerate()
	}
}

func (s *SeedChain) PublicData() PublicData {
	s.mu.Lock()
	defer s.mu.Unlock()

	return PublicData{
		Commitment: s.chain[s.index-1],
		ClientSeed: s.clientSeed,
		Nonce:      s.nonce,
		Remaining:  s.length - s.index,
	}
}

// SetClientSeed replaces the contributed seed. Takes effect with the next
// generated round; the running round keeps the seed it was created with.
func (s *SeedChain) SetClientSeed(seed string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seed != "" {
		s.clientSeed = seed
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// Without entropy the engine cannot produce a fair result.
		panic("fair: entropy source unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
