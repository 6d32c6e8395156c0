package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/check-deposit/internal/recognition"
)

func obj(fields map[string]recognition.Value) recognition.Value {
	return recognition.Object(fields)
}

func result(front, back, combined recognition.Value) *recognition.Result {
	return &recognition.Result{Front: front, Back: back, Combined: combined}
}

func TestExtractIdentityCombined(t *testing.T) {
	// A pre-combined check_id is used verbatim, even when it does not split
	// into three components, and wins over everything else in the output.
	res := result(
		obj(map[string]recognition.Value{
			"routing_number": recognition.String("999999999"),
			"account_number": recognition.String("1111"),
			"check_number":   recognition.String("2222"),
		}),
		recognition.Null(),
		obj(map[string]recognition.Value{
			"check_id": recognition.String("021000021_123456_789"),
		}),
	)

	fields := NewEngine().Extract(res)

	require.NotNil(t, fields.CheckID)
	assert.Equal(t, "021000021_123456_789", *fields.CheckID)
	require.NotNil(t, fields.Identity)
	assert.Equal(t, "021000021", fields.Identity.Routing)
	assert.Equal(t, "123456", fields.Identity.Account)
	assert.Equal(t, "789", fields.Identity.CheckNumber)
}

func TestExtractIdentityCombinedOpaque(t *testing.T) {
	res := result(recognition.Null(), recognition.Null(),
		obj(map[string]recognition.Value{
			"check_id": recognition.String("opaque-token"),
		}),
	)

	fields := NewEngine().Extract(res)

	require.NotNil(t, fields.CheckID)
	assert.Equal(t, "opaque-token", *fields.CheckID)
	assert.Nil(t, fields.Identity)
}

func TestExtractIdentityStructured(t *testing.T) {
	res := result(
		obj(map[string]recognition.Value{
			"routing_number": recognition.String("021000021"),
			"account_number": recognition.String("123456"),
			"check_number":   recognition.String("789"),
		}),
		recognition.Null(),
		recognition.Null(),
	)

	fields := NewEngine().Extract(res)

	require.NotNil(t, fields.CheckID)
	assert.Equal(t, "021000021_123456_789", *fields.CheckID)
}

func TestExtractIdentityStructuredPartial(t *testing.T) {
	// Two of three components is not an identity. The text heuristic then sees
	// only one usable digit run besides the routing number, so extraction
	// fails rather than degrading.
	res := result(
		obj(map[string]recognition.Value{
			"routing_number": recognition.String("021000021"),
			"account_number": recognition.String("123456"),
		}),
		recognition.Null(),
		recognition.Null(),
	)

	fields := NewEngine().Extract(res)

	assert.Nil(t, fields.CheckID)
	assert.Nil(t, fields.Identity)
}

func TestExtractIdentityFromText(t *testing.T) {
	res := result(
		obj(map[string]recognition.Value{
			"a_line": recognition.String("Pay to the order of 021000021"),
			"b_line": recognition.String("acct 12345678 chk 100234"),
		}),
		recognition.Null(),
		recognition.Null(),
	)

	fields := NewEngine().Extract(res)

	require.NotNil(t, fields.CheckID)
	assert.Equal(t, "021000021_12345678_100234", *fields.CheckID)
}

func TestExtractIdentityNoRoutingRun(t *testing.T) {
	// No 9-digit run anywhere means identity extraction fails outright.
	res := result(
		obj(map[string]recognition.Value{
			"line": recognition.String("acct 12345678 chk 100234 total 50.50"),
		}),
		recognition.Null(),
		recognition.Null(),
	)

	fields := NewEngine().Extract(res)
	assert.Nil(t, fields.CheckID)
	assert.Nil(t, fields.Identity)
}

func TestExtractIdentityTooFewRuns(t *testing.T) {
	res := result(
		obj(map[string]recognition.Value{
			"line": recognition.String("routing 021000021 acct 12345678"),
		}),
		recognition.Null(),
		recognition.Null(),
	)

	fields := NewEngine().Extract(res)
	assert.Nil(t, fields.CheckID)
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name  string
		res   *recognition.Result
		want  string
		found bool
	}{
		{
			name: "structured field on front",
			res: result(
				obj(map[string]recognition.Value{"amount": recognition.String("50.50")}),
				recognition.Null(), recognition.Null(),
			),
			want:  "50.50",
			found: true,
		},
		{
			name: "structured numeric field",
			res: result(
				obj(map[string]recognition.Value{"check_amount": recognition.Number(100)}),
				recognition.Null(), recognition.Null(),
			),
			want:  "100.00",
			found: true,
		},
		{
			name: "combined amount",
			res: result(recognition.Null(), recognition.Null(),
				obj(map[string]recognition.Value{"amount": recognition.String("25.00")}),
			),
			want:  "25.00",
			found: true,
		},
		{
			name: "currency pattern with thousands separator",
			res: result(
				obj(map[string]recognition.Value{"memo": recognition.String("$1,234.56 due on delivery")}),
				recognition.Null(), recognition.Null(),
			),
			want:  "1234.56",
			found: true,
		},
		{
			name: "currency pattern without cents",
			res: result(
				obj(map[string]recognition.Value{"memo": recognition.String("USD 50")}),
				recognition.Null(), recognition.Null(),
			),
			want:  "50",
			found: true,
		},
		{
			name: "plain decimal",
			res: result(
				obj(map[string]recognition.Value{"memo": recognition.String("pay exactly 1250.00 by friday")}),
				recognition.Null(), recognition.Null(),
			),
			want:  "1250.00",
			found: true,
		},
		{
			name: "digit run fallback prefers longest",
			res: result(
				obj(map[string]recognition.Value{"memo": recognition.String("ref 1234 conf 125075")}),
				recognition.Null(), recognition.Null(),
			),
			want:  "1250.75",
			found: true,
		},
		{
			name: "no amount signal",
			res: result(
				obj(map[string]recognition.Value{"memo": recognition.String("no numbers here")}),
				recognition.Null(), recognition.Null(),
			),
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := NewEngine().Extract(tt.res)
			if !tt.found {
				assert.Nil(t, fields.AmountRaw)
				return
			}
			require.NotNil(t, fields.AmountRaw)
			assert.Equal(t, tt.want, *fields.AmountRaw)
		})
	}
}

func TestExtractEndorsement(t *testing.T) {
	tests := []struct {
		name string
		res  *recognition.Result
		want bool
	}{
		{
			name: "explicit boolean true on back",
			res: result(recognition.Null(),
				obj(map[string]recognition.Value{"endorsed": recognition.Bool(true)}),
				recognition.Null(),
			),
			want: true,
		},
		{
			name: "explicit false beats keywords",
			res: result(recognition.Null(),
				obj(map[string]recognition.Value{
					"endorsed": recognition.Bool(false),
					"note":     recognition.String("endorsement area"),
				}),
				recognition.Null(),
			),
			want: false,
		},
		{
			name: "true-ish string",
			res: result(recognition.Null(),
				obj(map[string]recognition.Value{"is_endorsed": recognition.String("yes")}),
				recognition.Null(),
			),
			want: true,
		},
		{
			name: "image reference",
			res: result(recognition.Null(),
				obj(map[string]recognition.Value{"signature_image": recognition.String("gs://bucket/sig.png")}),
				recognition.Null(),
			),
			want: true,
		},
		{
			name: "keyword on back",
			res: result(recognition.Null(),
				obj(map[string]recognition.Value{"text": recognition.String("Signed by J. Doe")}),
				recognition.Null(),
			),
			want: true,
		},
		{
			name: "keyword on front only",
			res: result(
				obj(map[string]recognition.Value{"text": recognition.String("endorse here")}),
				recognition.Null(), recognition.Null(),
			),
			want: true,
		},
		{
			name: "nothing",
			res:  result(recognition.Null(), recognition.Null(), recognition.Null()),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := NewEngine().Extract(tt.res)
			assert.Equal(t, tt.want, fields.EndorsementPresent)
		})
	}
}

func TestIdentityKey(t *testing.T) {
	id := Identity{Routing: "021000021", Account: "123456", CheckNumber: "789"}
	assert.Equal(t, "021000021_123456_789", id.Key())
}

func TestFirstSome(t *testing.T) {
	calls := 0
	got, ok := firstSome(
		func() (string, bool) { calls++; return "", false },
		func() (string, bool) { calls++; return "hit", true },
		func() (string, bool) { calls++; return "never", true },
	)
	require.True(t, ok)
	assert.Equal(t, "hit", got)
	assert.Equal(t, 2, calls, "later strategies must not run after a hit")

	_, ok = firstSome(
		func() (int, bool) { return 0, false },
	)
	assert.False(t, ok)
}
