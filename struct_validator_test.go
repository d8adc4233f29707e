package csvpave

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNegativeAge = errors.New("age must not be negative")

type Person struct {
	ID     uuid.UUID `csv:"col:'id'"`
	Name   string    `csv:"col:'name'"`
	Age    int       `csv:"col:'age,omitempty' default:'18'"`
	Email  *string   `csv:"col:'email,omitempty'"`
	City   string    `csv:"col:'meta' path:'address.city'"`
	Joined time.Time `csv:"col:'joined' time:'2006-01-02'"`
	Note   string
	Secret string `csv:"-"`
}

func (p *Person) Validate() error {
	if p.Age < 0 {
		return errNegativeAge
	}
	return nil
}

const peopleCSV = `id,name,age,email,meta,joined
550e8400-e29b-41d4-a716-446655440000,alice,30,alice@example.com,"{""address"":{""city"":""Oslo""}}",2024-03-01
6ba7b810-9dad-11d1-80b4-00c04fd430c8,bob,,,"{""address"":{""city"":""Rome""}}",2023-12-24
`

type Pair struct {
	Left  string `csv:"idx:'0'"`
	Right int    `csv:"idx:'1'"`
}

type Fallback struct {
	Value string `csv:"col:'primary,omitempty' col:'secondary'"`
	Count int    `csv:"col:'count,omitempty' idx:'2,omitempty' default:'7'"`
}

type Address struct {
	City string `csv:"col:'city'"`
	Zip  string `csv:"col:'zip,omitempty'"`
}

type Customer struct {
	Name    string   `csv:"col:'name'"`
	Home    Address  `csv:"inline"`
	Billing *Address `csv:"inline"`
}

type Node struct {
	Value string `csv:"idx:'0'"`
	Next  *Node  `csv:"inline"`
}

func TestStructValidator(t *testing.T) {
	sv, err := NewStructValidator[Person]()
	require.NoError(t, err)

	t.Run("BindsByColumn", func(t *testing.T) {
		people, err := ParseWith(peopleCSV, RowValidator[Person](sv))
		require.NoError(t, err)
		require.Len(t, people, 2)

		alice := people[0]
		assert.Equal(t, uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"), alice.ID)
		assert.Equal(t, "alice", alice.Name)
		assert.Equal(t, 30, alice.Age)
		require.NotNil(t, alice.Email)
		assert.Equal(t, "alice@example.com", *alice.Email)
		assert.Equal(t, "Oslo", alice.City)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), alice.Joined)
		assert.Empty(t, alice.Note)
		assert.Empty(t, alice.Secret)

		bob := people[1]
		assert.Equal(t, "bob", bob.Name)
		assert.Equal(t, 18, bob.Age, "empty omitempty cell falls back to default")
		assert.Nil(t, bob.Email)
		assert.Equal(t, "Rome", bob.City)
	})

	t.Run("HeaderCaseInsensitive", func(t *testing.T) {
		src := "ID,NAME,Age,Email,Meta,Joined\n" +
			"550e8400-e29b-41d4-a716-446655440000,carol,41,,{\"address\":{\"city\":\"Lima\"}},2020-01-31\n"
		people, err := ParseWith(src, RowValidator[Person](sv))
		require.NoError(t, err)
		require.Len(t, people, 1)
		assert.Equal(t, "carol", people[0].Name)
		assert.Equal(t, "Lima", people[0].City)
	})

	t.Run("ConversionFailure", func(t *testing.T) {
		src := "id,name,age,email,meta,joined\n" +
			"550e8400-e29b-41d4-a716-446655440000,dan,old,,{},2020-01-31\n"
		people, err := ParseWith(src, RowValidator[Person](sv))
		assert.Nil(t, people)
		assert.ErrorIs(t, err, ErrSchemaValidation)
		assert.ErrorIs(t, err, strconv.ErrSyntax)

		var rowErr *RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, 1, rowErr.Row)
		assert.Equal(t, 2, rowErr.Line)
	})

	t.Run("ValidatableRejects", func(t *testing.T) {
		src := "id,name,age,email,meta,joined\n" +
			"550e8400-e29b-41d4-a716-446655440000,eve,-1,,\"{\"\"address\"\":{\"\"city\"\":\"\"X\"\"}}\",2020-01-31\n"
		_, err := ParseWith(src, RowValidator[Person](sv))
		assert.ErrorIs(t, err, errNegativeAge)
		assert.ErrorIs(t, err, ErrSchemaValidation)
	})

	t.Run("CellNotJSON", func(t *testing.T) {
		src := "id,name,age,email,meta,joined\n" +
			"550e8400-e29b-41d4-a716-446655440000,fay,1,,not json,2020-01-31\n"
		_, err := ParseWith(src, RowValidator[Person](sv))
		assert.ErrorIs(t, err, ErrCellNotJSON)
	})

	t.Run("PathNotFound", func(t *testing.T) {
		src := "id,name,age,email,meta,joined\n" +
			"550e8400-e29b-41d4-a716-446655440000,gus,1,,{},2020-01-31\n"
		_, err := ParseWith(src, RowValidator[Person](sv))
		assert.ErrorIs(t, err, ErrPathNotFound)
	})

	t.Run("MissingRequiredColumn", func(t *testing.T) {
		src := "id,name,age\n550e8400-e29b-41d4-a716-446655440000,hal,1\n"
		_, err := ParseWith(src, RowValidator[Person](sv))
		assert.ErrorIs(t, err, ErrColumnNotFound)

		var rowErr *RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, 0, rowErr.Row, "header binding failures are reported on row 0")
	})

	t.Run("ColumnsNeedHeader", func(t *testing.T) {
		rows, err := Parse(peopleCSV)
		require.NoError(t, err)

		_, err = Project(rows, RowValidator[Person](sv), false)
		assert.ErrorIs(t, err, ErrHeaderRequired)
	})

	t.Run("ChainIsCached", func(t *testing.T) {
		again, err := NewStructValidator[Person]()
		require.NoError(t, err)
		assert.Same(t, sv.chain, again.chain)
	})
}

func TestStructValidatorIndexBindings(t *testing.T) {
	sv := MustStructValidator[Pair]()

	t.Run("NoHeaderNeeded", func(t *testing.T) {
		rows := []Row{{"a", "1"}, {"b", "2", "extra"}}
		got, err := Project(rows, RowValidator[Pair](sv), false)
		require.NoError(t, err)
		assert.Equal(t, []Pair{{"a", 1}, {"b", 2}}, got)
	})

	t.Run("HeaderIgnored", func(t *testing.T) {
		rows := []Row{{"left", "right"}, {"a", "1"}}
		got, err := Project(rows, RowValidator[Pair](sv), true)
		require.NoError(t, err)
		assert.Equal(t, []Pair{{"a", 1}}, got)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := Project([]Row{{"a"}}, RowValidator[Pair](sv), false)
		assert.ErrorIs(t, err, ErrColumnOutOfRange)
	})
}

func TestStructValidatorFallbacks(t *testing.T) {
	sv := MustStructValidator[Fallback]()

	rows := []Row{
		{"primary", "secondary", "count"},
		{"p", "s", "3"},
		{"", "s", ""},
	}
	got, err := Project(rows, RowValidator[Fallback](sv), true)
	require.NoError(t, err)

	// idx:'2' is the count column itself, so an empty count falls through
	// to the default.
	assert.Equal(t, []Fallback{{"p", 3}, {"s", 7}}, got)

	t.Run("OnlyRequiredColumnsChecked", func(t *testing.T) {
		rows := []Row{{"secondary"}, {"s"}}
		got, err := Project(rows, RowValidator[Fallback](sv), true)
		require.NoError(t, err)
		assert.Equal(t, []Fallback{{"s", 7}}, got)
	})

	t.Run("DuplicateHeaderFirstWins", func(t *testing.T) {
		rows := []Row{{"secondary", "secondary"}, {"first", "second"}}
		got, err := Project(rows, RowValidator[Fallback](sv), true)
		require.NoError(t, err)
		assert.Equal(t, "first", got[0].Value)
	})
}

func TestStructValidatorInline(t *testing.T) {
	sv := MustStructValidator[Customer]()

	rows := []Row{{"name", "city", "zip"}, {"ann", "Oslo", "0150"}}
	got, err := Project(rows, RowValidator[Customer](sv), true)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "ann", got[0].Name)
	assert.Equal(t, Address{City: "Oslo", Zip: "0150"}, got[0].Home)
	require.NotNil(t, got[0].Billing)
	assert.Equal(t, Address{City: "Oslo", Zip: "0150"}, *got[0].Billing)

	t.Run("InlineColumnsChecked", func(t *testing.T) {
		_, err := Project([]Row{{"name"}, {"ann"}}, RowValidator[Customer](sv), true)
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})
}

func TestNewStructValidatorErrors(t *testing.T) {
	t.Run("NotStruct", func(t *testing.T) {
		_, err := NewStructValidator[int]()
		assert.ErrorIs(t, err, ErrNotStruct)
	})

	t.Run("NoBoundFields", func(t *testing.T) {
		_, err := NewStructValidator[struct{ A string }]()
		assert.ErrorIs(t, err, ErrNilParseChain)
	})

	t.Run("InvalidTag", func(t *testing.T) {
		_, err := NewStructValidator[struct {
			A string `csv:"col:'x,required'"`
		}]()
		assert.ErrorIs(t, err, ErrFailedToParseTag)
		assert.ErrorIs(t, err, ErrUnallowedBindingModifier)
	})

	t.Run("InlineCycle", func(t *testing.T) {
		_, err := NewStructValidator[Node]()
		assert.ErrorIs(t, err, ErrFailedToBuildSubChain)
	})

	t.Run("InlineNonStruct", func(t *testing.T) {
		_, err := NewStructValidator[struct {
			A string `csv:"inline"`
		}]()
		assert.ErrorIs(t, err, ErrFailedToBuildSubChain)
	})

	t.Run("MustPanics", func(t *testing.T) {
		assert.Panics(t, func() { MustStructValidator[int]() })
	})
}

func TestStructValidatorConcurrentParses(t *testing.T) {
	sv := MustStructValidator[Person]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			people, err := ParseWith(peopleCSV, RowValidator[Person](sv))
			assert.NoError(t, err)
			assert.Len(t, people, 2)
		}()
	}
	wg.Wait()
}

func BenchmarkStructValidator(b *testing.B) {
	sv := MustStructValidator[Person]()
	p, err := NewParser(ParseOpts{})
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseAs(p, peopleCSV, RowValidator[Person](sv)); err != nil {
			b.Fatal(err)
		}
	}
}
