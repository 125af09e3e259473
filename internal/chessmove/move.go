package chessmove

import (
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"
)

// Code is a parsed UCI move code such as "e2e4" or "e7e8q".
type Code struct {
	From  chess.Square
	To    chess.Square
	Promo chess.PieceType
}

var (
	squaresByName = buildSquareIndex()
	promotions    = map[byte]chess.PieceType{
		'q': chess.Queen,
		'r': chess.Rook,
		'b': chess.Bishop,
		'n': chess.Knight,
	}
	promotionSuffix = map[chess.PieceType]string{
		chess.Queen:  "q",
		chess.Rook:   "r",
		chess.Bishop: "b",
		chess.Knight: "n",
	}
)

func buildSquareIndex() map[string]chess.Square {
	idx := make(map[string]chess.Square, 64)
	for sq := chess.A1; sq <= chess.H8; sq++ {
		idx[sq.String()] = sq
	}
	return idx
}

// Parse validates the shape of a UCI move code. It does not check legality
// against any position.
func Parse(code string) (Code, error) {
	s := strings.ToLower(code)
	if len(s) != 4 && len(s) != 5 {
		return Code{}, fmt.Errorf("move %q must be 4 or 5 characters", code)
	}
	from, ok := squaresByName[s[0:2]]
	if !ok {
		return Code{}, fmt.Errorf("move %q has invalid origin square", code)
	}
	to, ok := squaresByName[s[2:4]]
	if !ok {
		return Code{}, fmt.Errorf("move %q has invalid target square", code)
	}
	if from == to {
		return Code{}, fmt.Errorf("move %q does not move", code)
	}
	c := Code{From: from, To: to, Promo: chess.NoPieceType}
	if len(s) == 5 {
		promo, ok := promotions[s[4]]
		if !ok {
			return Code{}, fmt.Errorf("move %q has invalid promotion piece", code)
		}
		c.Promo = promo
	}
	return c, nil
}

// String converts the code back to lowercase UCI format (e.g., "e2e4", "e7e8q")
func (c Code) String() string {
	return c.From.String() + c.To.String() + promotionSuffix[c.Promo]
}

// Canonicalize parses every code and returns them in lowercase UCI form.
// On failure it returns the index of the first invalid code.
func Canonicalize(codes []string) ([]string, int, error) {
	out := make([]string, 0, len(codes))
	for i, code := range codes {
		c, err := Parse(code)
		if err != nil {
			return nil, i, err
		}
		out = append(out, c.String())
	}
	return out, -1, nil
}
