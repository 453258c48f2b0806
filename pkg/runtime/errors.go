package runtime

import "fmt"

// ResultShapeError reports that a routine returned a result whose shape
// violates its designation's contract. It is a runtime contract of the
// generated wrapper, raised while executing the call, never while
// generating it.
type ResultShapeError struct {
	Expected string
	Actual   int
}

// Error implements the error interface.
func (e *ResultShapeError) Error() string {
	return fmt.Sprintf("result shape violation: expected %s, got %d row(s)", e.Expected, e.Actual)
}

func shapeRow0(rows []map[string]interface{}) (map[string]interface{}, error) {
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, &ResultShapeError{Expected: "0 or 1 rows", Actual: len(rows)}
	}
}

func shapeRow1(rows []map[string]interface{}) (map[string]interface{}, error) {
	if len(rows) != 1 {
		return nil, &ResultShapeError{Expected: "exactly 1 row", Actual: len(rows)}
	}
	return rows[0], nil
}

func shapeSingleton0(rows []map[string]interface{}) (interface{}, error) {
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return firstColumn(rows[0])
	default:
		return nil, &ResultShapeError{Expected: "0 or 1 rows", Actual: len(rows)}
	}
}

func shapeSingleton1(rows []map[string]interface{}) (interface{}, error) {
	if len(rows) != 1 {
		return nil, &ResultShapeError{Expected: "exactly 1 row", Actual: len(rows)}
	}
	return firstColumn(rows[0])
}

func firstColumn(row map[string]interface{}) (interface{}, error) {
	if len(row) != 1 {
		return nil, fmt.Errorf("singleton result must have exactly 1 column, got %d", len(row))
	}
	for _, v := range row {
		return v, nil
	}
	return nil, nil
}
