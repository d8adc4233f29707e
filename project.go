package csvpave

// Project runs v over every data row and returns the values it produced, in
// row order. When consumeHeader is set the first row is withheld from v and
// passed to BindHeader instead.
//
// Projection is all-or-nothing: the first rejected row aborts it with a
// *RowError and no values are returned.
func Project[T any](rows []Row, v RowValidator[T], consumeHeader bool) ([]T, error) {
	return project(rows, nil, v, consumeHeader)
}

// project is Project with the source lines of each row, which may be nil.
func project[T any](rows []Row, lines []int, v RowValidator[T], consumeHeader bool) ([]T, error) {
	if v == nil {
		return nil, ErrNilValidator
	}
	if len(rows) == 0 {
		return []T{}, nil
	}

	var header []string
	first := 0
	if consumeHeader && len(rows) > 0 {
		header = rows[0]
		first = 1
	}

	bound, err := bindValidator(v, header)
	if err != nil {
		return nil, &RowError{Row: 0, Line: lineOf(lines, 0), Err: err}
	}

	out := make([]T, 0, len(rows)-first)
	for i := first; i < len(rows); i++ {
		value, err := bound.ValidateRow(rows[i])
		if err != nil {
			return nil, &RowError{Row: i, Line: lineOf(lines, i), Err: err}
		}
		out = append(out, value)
	}
	return out, nil
}

// lineOf returns the line row i started on, or its 1-based position when
// lines are unknown.
func lineOf(lines []int, i int) int {
	if i < len(lines) {
		return lines[i]
	}
	return i + 1
}

// dropHeader removes the first row for raw parses that consume the header.
func dropHeader(rows []Row) []Row {
	if len(rows) == 0 {
		return rows
	}
	return rows[1:]
}
