package phases

// symbol is an interned division or booth name. Sixteen bits is generous:
// a full national ballot file holds a few thousand distinct names.
type symbol uint16

// divBooth is an interned (division, booth) key. Two uint16s make a far
// cheaper map key than a pair of strings while streaming tens of millions
// of ballot rows.
type divBooth struct {
	division symbol
	booth    symbol
}

// interner maps strings to dense uint16 symbols and back. It is owned by
// the distribution phase for the duration of a run and discarded with it;
// symbols never escape the phase.
type interner struct {
	symbols map[string]symbol
	strings []string
}

func newInterner() *interner {
	return &interner{symbols: make(map[string]symbol, 1024)}
}

// intern returns the symbol for s, minting one on first sight.
// The hit path does a single map lookup and no allocation.
func (in *interner) intern(s string) (symbol, error) {
	if sym, ok := in.symbols[s]; ok {
		return sym, nil
	}
	if len(in.strings) > int(^symbol(0)) {
		return 0, ErrInternerFull
	}
	sym := symbol(len(in.strings))
	// s aliases the csv reader's reused record; copy before retaining.
	owned := string(append([]byte(nil), s...))
	in.symbols[owned] = sym
	in.strings = append(in.strings, owned)
	return sym, nil
}

// resolve returns the string for a previously interned symbol.
func (in *interner) resolve(sym symbol) string { return in.strings[sym] }

// len returns the number of interned strings.
func (in *interner) len() int { return len(in.strings) }
