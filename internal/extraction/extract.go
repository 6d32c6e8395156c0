package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/check-deposit/internal/recognition"
)

// Field name aliases observed across recognition providers. Lookup is
// case-insensitive with separators ignored (see recognition.FindKey).
var (
	checkIDAliases     = []string{"check_id", "checkid", "combined_check_id"}
	routingAliases     = []string{"routing_number", "routing", "routing_no", "aba", "aba_number", "transit_number"}
	accountAliases     = []string{"account_number", "account", "account_no", "acct_number"}
	checkNumberAliases = []string{"check_number", "check_no", "cheque_number", "serial_number"}
	amountAliases      = []string{"amount", "check_amount", "amount_text", "courtesy_amount", "total"}
	endorsedAliases    = []string{"endorsed", "endorsement", "endorsement_present", "is_endorsed", "has_endorsement"}
	endorseImgAliases  = []string{"endorsement_image", "signature_image", "endorsement_image_url"}
)

var (
	digitRunRe = regexp.MustCompile(`[0-9]+`)
	// Currency-marked decimal, thousands separators tolerated: "$1,234.56", "USD 50".
	currencyAmountRe = regexp.MustCompile(`(?:\$|USD)\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`)
	// Plain decimal with exactly two fractional digits.
	plainAmountRe = regexp.MustCompile(`[0-9]+(?:,[0-9]{3})*\.[0-9]{2}`)
)

// Identity is the composite key naming a physical check. All three components
// must be present for the identity to exist at all; a partial identity is
// treated as absent.
type Identity struct {
	Routing     string
	Account     string
	CheckNumber string
}

// Key renders the canonical identity string.
func (id Identity) Key() string {
	return fmt.Sprintf("%s_%s_%s", id.Routing, id.Account, id.CheckNumber)
}

// identityFromKey splits a pre-combined identity string back into components
// when it has the canonical three-part shape; otherwise the key stays opaque
// and no component view exists.
func identityFromKey(key string) *Identity {
	parts := strings.Split(key, "_")
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return &Identity{Routing: parts[0], Account: parts[1], CheckNumber: parts[2]}
	}
	return nil
}

// Fields is the extraction outcome for one submission. CheckID is nil when
// identity extraction failed; AmountRaw is nil when no amount signal was found
// anywhere, which is a valid outcome rather than an error.
type Fields struct {
	CheckID            *string
	Identity           *Identity
	AmountRaw          *string
	EndorsementPresent bool
}

// Engine recovers check identity, amount and endorsement presence from raw
// recognition output via ordered strategy chains.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Extract runs all three strategy chains over the recognition result.
func (e *Engine) Extract(res *recognition.Result) Fields {
	flatAll := flattenAll(res)

	fields := Fields{}

	if id, key, ok := e.extractIdentity(res, flatAll); ok {
		fields.CheckID = &key
		fields.Identity = id
	}

	if amount, ok := e.extractAmount(res, flatAll); ok {
		fields.AmountRaw = &amount
	}

	fields.EndorsementPresent = e.extractEndorsement(res)

	return fields
}

// extractIdentity: pre-combined id verbatim, else explicit structured fields,
// else digit-run heuristics over the flattened corpus.
func (e *Engine) extractIdentity(res *recognition.Result, flat []string) (*Identity, string, bool) {
	type candidate struct {
		id  *Identity
		key string
	}

	found, ok := firstSome(
		func() (candidate, bool) {
			if key, ok := stringField(res.Combined, checkIDAliases); ok {
				return candidate{id: identityFromKey(key), key: key}, true
			}
			return candidate{}, false
		},
		func() (candidate, bool) {
			if id, ok := identityFromStructured(res); ok {
				return candidate{id: id, key: id.Key()}, true
			}
			return candidate{}, false
		},
		func() (candidate, bool) {
			if id, ok := identityFromText(flat); ok {
				return candidate{id: id, key: id.Key()}, true
			}
			return candidate{}, false
		},
	)
	if !ok {
		return nil, "", false
	}
	return found.id, found.key, true
}

// identityFromStructured reads explicit routing/account/check fields across
// both recognition results. All three must resolve or the strategy yields
// nothing.
func identityFromStructured(res *recognition.Result) (*Identity, bool) {
	sides := []recognition.Value{res.Front, res.Back, res.Combined}

	lookup := func(aliases []string) (string, bool) {
		for _, side := range sides {
			if s, ok := stringField(side, aliases); ok {
				return s, true
			}
		}
		return "", false
	}

	routing, okR := lookup(routingAliases)
	account, okA := lookup(accountAliases)
	checkNum, okC := lookup(checkNumberAliases)
	if !okR || !okA || !okC {
		return nil, false
	}
	return &Identity{Routing: routing, Account: account, CheckNumber: checkNum}, true
}

// identityFromText is the last-resort identity heuristic: the first run of
// exactly 9 digits is the routing number; of the remaining digit runs of
// length >= 4, the first two become account and check number in that order.
func identityFromText(flat []string) (*Identity, bool) {
	corpus := strings.Join(flat, "\n")
	runs := digitRunRe.FindAllString(corpus, -1)

	routing := ""
	for _, run := range runs {
		if len(run) == 9 {
			routing = run
			break
		}
	}
	if routing == "" {
		return nil, false
	}

	var survivors []string
	for _, run := range runs {
		if len(run) >= 4 && run != routing {
			survivors = append(survivors, run)
		}
	}
	if len(survivors) < 2 {
		return nil, false
	}

	return &Identity{Routing: routing, Account: survivors[0], CheckNumber: survivors[1]}, true
}

// extractAmount: explicit structured field, else pre-combined amount, else
// currency-marked then plain decimal patterns over the flattened corpus, else
// the dollars-and-cents digit-run fallback.
func (e *Engine) extractAmount(res *recognition.Result, flat []string) (string, bool) {
	corpus := strings.Join(flat, "\n")

	return firstSome(
		func() (string, bool) {
			for _, side := range []recognition.Value{res.Front, res.Back} {
				if s, ok := amountField(side); ok {
					return s, true
				}
			}
			return "", false
		},
		func() (string, bool) { return amountField(res.Combined) },
		func() (string, bool) { return amountFromPatterns(corpus) },
		func() (string, bool) { return amountFromDigitRun(corpus) },
	)
}

func amountField(v recognition.Value) (string, bool) {
	field, ok := v.FindKey(amountAliases...)
	if !ok {
		return "", false
	}
	if s, ok := field.AsString(); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s), true
	}
	if n, ok := field.AsNumber(); ok {
		return fmt.Sprintf("%.2f", n), true
	}
	return "", false
}

// amountFromPatterns searches the corpus for a currency-marked decimal first,
// then a plain decimal with two places. Thousands separators are normalized
// away so "$1,234.56" yields "1234.56".
func amountFromPatterns(corpus string) (string, bool) {
	if m := currencyAmountRe.FindStringSubmatch(corpus); m != nil {
		return strings.ReplaceAll(m[1], ",", ""), true
	}
	if m := plainAmountRe.FindString(corpus); m != "" {
		return strings.ReplaceAll(m, ",", ""), true
	}
	return "", false
}

// amountFromDigitRun treats a digit run of length 4-7 as dollars and cents
// concatenated, the last two digits being cents. The longest run wins.
// Best-effort only; this can misparse and is deliberately the final fallback.
func amountFromDigitRun(corpus string) (string, bool) {
	best := ""
	for _, run := range digitRunRe.FindAllString(corpus, -1) {
		if len(run) >= 4 && len(run) <= 7 && len(run) > len(best) {
			best = run
		}
	}
	if best == "" {
		return "", false
	}
	return best[:len(best)-2] + "." + best[len(best)-2:], true
}

// extractEndorsement: explicit structured flag, else an embedded endorsement
// image reference, else keyword search over the back side, else the same
// search over everything.
func (e *Engine) extractEndorsement(res *recognition.Result) bool {
	present, ok := firstSome(
		func() (bool, bool) { return endorsementFlag(res) },
		func() (bool, bool) {
			for _, side := range []recognition.Value{res.Front, res.Back, res.Combined} {
				if img, ok := side.FindKey(endorseImgAliases...); ok && !img.IsNull() {
					return true, true
				}
			}
			return false, false
		},
		func() (bool, bool) {
			if hasEndorsementKeyword(res.Back.FlatText()) {
				return true, true
			}
			return false, false
		},
		func() (bool, bool) {
			corpus := strings.Join(flattenAll(res), "\n")
			if hasEndorsementKeyword(corpus) {
				return true, true
			}
			return false, false
		},
	)
	return ok && present
}

// endorsementFlag reads an explicit boolean (or true-ish string) field. A
// present explicit field resolves the chain either way.
func endorsementFlag(res *recognition.Result) (bool, bool) {
	for _, side := range []recognition.Value{res.Back, res.Combined, res.Front} {
		field, ok := side.FindKey(endorsedAliases...)
		if !ok {
			continue
		}
		if b, ok := field.AsBool(); ok {
			return b, true
		}
		if s, ok := field.AsString(); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes", "y", "1":
				return true, true
			case "false", "no", "n", "0":
				return false, true
			}
		}
	}
	return false, false
}

var endorsementKeywords = []string{"endorse", "endorsement", "signed by", "signature"}

func hasEndorsementKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range endorsementKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// stringField reads a field under the given aliases and coerces scalars to a
// non-empty string. Integral numbers are rendered without a fraction since
// providers sometimes return account or check numbers as JSON numbers.
func stringField(v recognition.Value, aliases []string) (string, bool) {
	field, ok := v.FindKey(aliases...)
	if !ok {
		return "", false
	}
	if s, ok := field.AsString(); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s, true
		}
		return "", false
	}
	if n, ok := field.AsNumber(); ok {
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n)), true
		}
		return fmt.Sprintf("%v", n), true
	}
	return "", false
}

func flattenAll(res *recognition.Result) []string {
	var out []string
	out = append(out, res.Front.Flatten()...)
	out = append(out, res.Back.Flatten()...)
	out = append(out, res.Combined.Flatten()...)
	return out
}
