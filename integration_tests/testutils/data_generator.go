package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	raffledomain "github.com/Black-And-White-Club/raffle/app/modules/raffle/domain"
)

// TestDataGenerator creates reproducible raffle participants.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  uint64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...uint64) *TestDataGenerator {
	s := uint64(time.Now().UnixNano())
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(s), seed: s}
}

func (g *TestDataGenerator) Seed() uint64 {
	return g.seed
}

// Address returns a valid, unique-enough account address.
func (g *TestDataGenerator) Address(prefix string) raffledomain.Address {
	return raffledomain.Address(prefix + "-" + g.faker.LetterN(12))
}

// Players returns n distinct player addresses.
func (g *TestDataGenerator) Players(n int) []raffledomain.Address {
	seen := make(map[raffledomain.Address]bool, n)
	players := make([]raffledomain.Address, 0, n)
	for len(players) < n {
		p := g.Address("player")
		if seen[p] {
			continue
		}
		seen[p] = true
		players = append(players, p)
	}
	return players
}
