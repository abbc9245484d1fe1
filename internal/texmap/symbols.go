package texmap

import "sort"

// symbols maps letter commands to their Unicode replacement text. Entries
// follow TeX naming; function names map to themselves so \sin and friends
// render upright without a dedicated operator mechanism.
var symbols = map[string]string{
	// Greek lowercase
	"alpha":      "α",
	"beta":       "β",
	"gamma":      "γ",
	"delta":      "δ",
	"epsilon":    "ϵ",
	"varepsilon": "ε",
	"zeta":       "ζ",
	"eta":        "η",
	"theta":      "θ",
	"vartheta":   "ϑ",
	"iota":       "ι",
	"kappa":      "κ",
	"lambda":     "λ",
	"mu":         "μ",
	"nu":         "ν",
	"xi":         "ξ",
	"pi":         "π",
	"varpi":      "ϖ",
	"rho":        "ρ",
	"varrho":     "ϱ",
	"sigma":      "σ",
	"varsigma":   "ς",
	"tau":        "τ",
	"upsilon":    "υ",
	"phi":        "ϕ",
	"varphi":     "φ",
	"chi":        "χ",
	"psi":        "ψ",
	"omega":      "ω",

	// Greek uppercase
	"Gamma":   "Γ",
	"Delta":   "Δ",
	"Theta":   "Θ",
	"Lambda":  "Λ",
	"Xi":      "Ξ",
	"Pi":      "Π",
	"Sigma":   "Σ",
	"Upsilon": "Υ",
	"Phi":     "Φ",
	"Psi":     "Ψ",
	"Omega":   "Ω",

	// Binary operators
	"pm":       "±",
	"mp":       "∓",
	"times":    "×",
	"div":      "÷",
	"cdot":     "⋅",
	"ast":      "∗",
	"star":     "⋆",
	"circ":     "∘",
	"bullet":   "•",
	"cap":      "∩",
	"cup":      "∪",
	"vee":      "∨",
	"wedge":    "∧",
	"setminus": "∖",
	"oplus":    "⊕",
	"ominus":   "⊖",
	"otimes":   "⊗",
	"oslash":   "⊘",
	"odot":     "⊙",

	// Relations
	"le":       "≤",
	"leq":      "≤",
	"ge":       "≥",
	"geq":      "≥",
	"ne":       "≠",
	"neq":      "≠",
	"approx":   "≈",
	"equiv":    "≡",
	"sim":      "∼",
	"simeq":    "≃",
	"cong":     "≅",
	"propto":   "∝",
	"subset":   "⊂",
	"supset":   "⊃",
	"subseteq": "⊆",
	"supseteq": "⊇",
	"in":       "∈",
	"notin":    "∉",
	"ni":       "∋",
	"ll":       "≪",
	"gg":       "≫",
	"prec":     "≺",
	"succ":     "≻",
	"perp":     "⊥",
	"parallel": "∥",
	"mid":      "∣",

	// Arrows
	"to":             "→",
	"rightarrow":     "→",
	"leftarrow":      "←",
	"leftrightarrow": "↔",
	"Rightarrow":     "⇒",
	"Leftarrow":      "⇐",
	"Leftrightarrow": "⇔",
	"mapsto":         "↦",
	"uparrow":        "↑",
	"downarrow":      "↓",
	"updownarrow":    "↕",
	"longrightarrow": "⟶",
	"longleftarrow":  "⟵",
	"implies":        "⟹",
	"iff":            "⟺",
	"hookrightarrow": "↪",
	"rightharpoonup": "⇀",
	"nearrow":        "↗",
	"searrow":        "↘",

	// Large operators
	"sum":      "∑",
	"prod":     "∏",
	"coprod":   "∐",
	"int":      "∫",
	"iint":     "∬",
	"iiint":    "∭",
	"oint":     "∮",
	"bigcup":   "⋃",
	"bigcap":   "⋂",
	"bigvee":   "⋁",
	"bigwedge": "⋀",

	// Delimiters
	"langle": "⟨",
	"rangle": "⟩",
	"lceil":  "⌈",
	"rceil":  "⌉",
	"lfloor": "⌊",
	"rfloor": "⌋",
	"|":      "‖",

	// Miscellaneous
	"infty":      "∞",
	"partial":    "∂",
	"nabla":      "∇",
	"forall":     "∀",
	"exists":     "∃",
	"nexists":    "∄",
	"emptyset":   "∅",
	"varnothing": "∅",
	"aleph":      "ℵ",
	"hbar":       "ℏ",
	"ell":        "ℓ",
	"Re":         "ℜ",
	"Im":         "ℑ",
	"wp":         "℘",
	"angle":      "∠",
	"triangle":   "△",
	"prime":      "′",
	"dagger":     "†",
	"ddagger":    "‡",
	"dots":       "…",
	"ldots":      "…",
	"cdots":      "⋯",
	"vdots":      "⋮",
	"ddots":      "⋱",
	"therefore":  "∴",
	"because":    "∵",
	"neg":        "¬",
	"lnot":       "¬",
	"top":        "⊤",
	"bot":        "⊥",
	"surd":       "√",

	// Spacing
	"quad":  " ",
	"qquad": "  ",

	// Function names, rendered upright as plain text
	"sin":    "sin",
	"cos":    "cos",
	"tan":    "tan",
	"cot":    "cot",
	"sec":    "sec",
	"csc":    "csc",
	"arcsin": "arcsin",
	"arccos": "arccos",
	"arctan": "arctan",
	"sinh":   "sinh",
	"cosh":   "cosh",
	"tanh":   "tanh",
	"log":    "log",
	"ln":     "ln",
	"lg":     "lg",
	"exp":    "exp",
	"lim":    "lim",
	"limsup": "lim sup",
	"liminf": "lim inf",
	"sup":    "sup",
	"inf":    "inf",
	"min":    "min",
	"max":    "max",
	"arg":    "arg",
	"det":    "det",
	"deg":    "deg",
	"dim":    "dim",
	"gcd":    "gcd",
	"mod":    "mod",
	"Pr":     "Pr",
}

// structuralCommands take arguments and are handled outside the symbol
// table; listed here so typo suggestions can reach them.
var structuralCommands = []string{"text", "frac", "sqrt"}

// maxSuggestDistance caps how far a typo may be from a known command to
// still earn a suggestion.
const maxSuggestDistance = 2

// suggestCommand returns the known command closest to name, or "" when
// nothing is close enough. Ties resolve to the lexicographically smaller
// candidate so diagnostics are deterministic.
func suggestCommand(name string) string {
	candidates := make([]string, 0, len(symbols)+len(structuralCommands))
	for cmd := range symbols {
		candidates = append(candidates, cmd)
	}
	candidates = append(candidates, structuralCommands...)
	sort.Strings(candidates)

	best := ""
	bestDist := maxSuggestDistance + 1
	for _, cand := range candidates {
		if d := editDistance(name, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two ASCII command names.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
