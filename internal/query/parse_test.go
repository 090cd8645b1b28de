package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
)

func TestParseWhere(t *testing.T) {
	tests := []struct {
		in   string
		want Expression
	}{
		{"area > 5", GreaterThan(Prop("area"), Lit(datatype.Int(5)))},
		{"area <= 2.5", LessThanOrEqualTo(Prop("area"), Lit(datatype.Float(2.5)))},
		{"name != 'x'", NotEqualTo(Prop("name"), Lit(datatype.Str("x")))},
		{"p.id = -3", EqualTo(QualifiedProp("p", "id"), Lit(datatype.Int(-3)))},
		{
			"status = 'active' and (depth >= 100 or depth is null)",
			And(
				EqualTo(Prop("status"), Lit(datatype.Str("active"))),
				Or(GreaterThanOrEqualTo(Prop("depth"), Lit(datatype.Int(100))), IsNull(Prop("depth"))),
			),
		},
		{"name like 'cap%'", Fn(OpLike, Prop("name"), Lit(datatype.Str("cap%")))},
		{"name not like 'cap%'", Not(Fn(OpLike, Prop("name"), Lit(datatype.Str("cap%"))))},
		{"id in (1, 2)", In(Prop("id"), Lit(datatype.Int(1)), Lit(datatype.Int(2)))},
		{"id not in (1)", Not(In(Prop("id"), Lit(datatype.Int(1))))},
		{
			"depth between 10 and 20",
			And(
				GreaterThanOrEqualTo(Prop("depth"), Lit(datatype.Int(10))),
				LessThanOrEqualTo(Prop("depth"), Lit(datatype.Int(20))),
			),
		},
		{"not flag is not null", Not(IsNotNull(Prop("flag")))},
		{"area * 2 > width", GreaterThan(Mul(Prop("area"), Lit(datatype.Int(2))), Prop("width"))},
		{"note = null", EqualTo(Prop("note"), Lit(datatype.Null{}))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWhere(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWhere_Errors(t *testing.T) {
	_, err := ParseWhere("area >")
	assert.True(t, errs.IsPrecondition(err))

	_, err = ParseWhere("id in (select id from t)")
	assert.True(t, errs.IsUnimplemented(err))

	_, err = ParseWhere("a & 1")
	assert.True(t, errs.IsUnimplemented(err))
}
