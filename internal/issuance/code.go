package issuance

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const codePrefix = "CND"

// CodeGenerator produces candidate validation codes. Codes are short and
// human-typable, so collisions are expected; the store's unique constraint
// is the actual arbiter and callers retry on collision.
type CodeGenerator interface {
	Generate(now time.Time) string
}

// RandomCodeGenerator produces codes of the form CND<yyMMdd><NNN> where NNN
// is a zero-padded random number in [0, 999].
type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

func (g *RandomCodeGenerator) Generate(now time.Time) string {
	return fmt.Sprintf("%s%s%03d", codePrefix, now.UTC().Format("060102"), rand.IntN(1000))
}
