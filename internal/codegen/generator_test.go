package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprocsync/sprocsync/internal/metadata"
	"github.com/sprocsync/sprocsync/internal/naming"
)

func singleRoutineCache(m *metadata.RoutineMetadata) metadata.Cache {
	return metadata.Cache{m.RoutineName: m}
}

func generate(t *testing.T, cache metadata.Cache) string {
	t.Helper()
	code, err := NewGenerator("sproc", 1048576).Generate(cache, nil)
	require.NoError(t, err)
	return code
}

func TestGenerate_Row1Wrapper(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName:      "customer_get",
		RoutineType:      "PROCEDURE",
		Designation:      metadata.DesignationRow1,
		ShortDescription: "Selects a customer.",
		Parameters: []metadata.ParameterDescriptor{
			{Name: "p_customer_id", DataType: "int(11)", Description: "The customer ID."},
		},
	}))

	assert.Contains(t, code, "// Code generated by sprocsync. DO NOT EDIT.")
	assert.Contains(t, code, "package sproc")
	assert.Contains(t, code, "// CustomerGet calls the stored procedure customer_get.")
	assert.Contains(t, code, "// Selects a customer.")
	assert.Contains(t, code, "//   p_customer_id  int(11)  The customer ID.")
	assert.Contains(t, code, "func CustomerGet(ctx context.Context, db *sql.DB, pCustomerId int64) (map[string]interface{}, error) {")
	assert.Contains(t, code, "callText := \"CALL `customer_get`(\" + runtime.QuoteInt(pCustomerId) + \")\"")
	assert.Contains(t, code, "return runtime.ExecRow1(ctx, db, callText)")
}

func TestGenerate_MultiLineParameterDescription(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "customer_note_set",
		RoutineType: "PROCEDURE",
		Designation: metadata.DesignationNone,
		Parameters: []metadata.ParameterDescriptor{
			{Name: "p_customer_id", DataType: "int(11)", Description: "The customer ID."},
			{Name: "p_note", DataType: "varchar(255)",
				Description: "A free-form note.\nStored verbatim on the customer record."},
		},
	}))

	// Continuation lines of a description line up under its first line.
	assert.Contains(t, code, "//   p_customer_id  int(11)       The customer ID.")
	assert.Contains(t, code, "//   p_note         varchar(255)  A free-form note.\n"+
		"//                                Stored verbatim on the customer record.")
}

func TestGenerate_ParameterTypes(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "customer_search",
		RoutineType: "PROCEDURE",
		Designation: metadata.DesignationRows,
		Parameters: []metadata.ParameterDescriptor{
			{Name: "p_name", DataType: "varchar(64)"},
			{Name: "p_score", DataType: "double"},
			{Name: "p_token", DataType: "varbinary(16)"},
		},
	}))

	assert.Contains(t, code, "pName string, pScore float64, pToken []byte")
	assert.Contains(t, code, "runtime.QuoteString(pName)")
	assert.Contains(t, code, "runtime.QuoteFloat(pScore)")
	assert.Contains(t, code, "runtime.QuoteBytes(pToken)")
	assert.Contains(t, code, "return runtime.ExecRows(ctx, db, callText)")
}

func TestGenerate_FunctionUsesSelect(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "customer_max_id",
		RoutineType: "FUNCTION",
		Designation: metadata.DesignationFunction,
		ReturnType:  "int(11)",
	}))

	assert.Contains(t, code, "// CustomerMaxId calls the stored function customer_max_id.")
	assert.Contains(t, code, "// Returns: int(11)")
	assert.Contains(t, code, "callText := \"SELECT `customer_max_id`()\"")
	assert.Contains(t, code, "return runtime.ExecFunction(ctx, db, callText)")
}

func TestGenerate_LobStreaming(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "blob_put",
		RoutineType: "PROCEDURE",
		Designation: metadata.DesignationNone,
		Parameters: []metadata.ParameterDescriptor{
			{Name: "p_id", DataType: "int(11)"},
			{Name: "p_data", DataType: "longblob", Lob: true},
			{Name: "p_note", DataType: "longtext", Lob: true},
		},
	}))

	assert.Contains(t, code, "func BlobPut(ctx context.Context, db *sql.DB, pId int64, pData []byte, pNote string) (int64, error) {")
	assert.Contains(t, code, "lobs := []runtime.LobParam{")
	assert.Contains(t, code, "{Variable: \"@sprocsync_lob0\", Data: pData},")
	assert.Contains(t, code, "{Variable: \"@sprocsync_lob1\", Data: []byte(pNote)},")
	assert.Contains(t, code, "callText := \"CALL `blob_put`(\" + runtime.QuoteInt(pId) + \", @sprocsync_lob0, @sprocsync_lob1)\"")
	assert.Contains(t, code, "return runtime.ExecLobNone(ctx, db, callText, 1048576, lobs)")
}

func TestGenerate_RowsWithKeyInlinesKeys(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "order_tree",
		RoutineType: "PROCEDURE",
		Designation: metadata.DesignationRowsWithKey,
		KeyColumns:  []string{"customer_id", "order_id"},
	}))

	assert.Contains(t, code, "return runtime.ExecRowsWithKey(ctx, db, callText, \"customer_id\", \"order_id\")")
}

func TestGenerate_ExtraArguments(t *testing.T) {
	cache := metadata.Cache{
		"audit_dump": {RoutineName: "audit_dump", RoutineType: "PROCEDURE",
			Designation: metadata.DesignationLog},
		"report_print": {RoutineName: "report_print", RoutineType: "PROCEDURE",
			Designation: metadata.DesignationTable},
		"event_scan": {RoutineName: "event_scan", RoutineType: "PROCEDURE",
			Designation: metadata.DesignationBulk},
	}
	code := generate(t, cache)

	assert.Contains(t, code, "func AuditDump(ctx context.Context, db *sql.DB, logger *zap.Logger) (int64, error) {")
	assert.Contains(t, code, "return runtime.ExecLog(ctx, db, logger, callText)")
	assert.Contains(t, code, "func ReportPrint(ctx context.Context, db *sql.DB, w io.Writer) (int64, error) {")
	assert.Contains(t, code, "return runtime.ExecTable(ctx, db, w, callText)")
	assert.Contains(t, code, "func EventScan(ctx context.Context, db *sql.DB, handler runtime.RowHandler) (int64, error) {")
	assert.Contains(t, code, "return runtime.ExecBulk(ctx, db, handler, callText)")

	assert.Contains(t, code, "\"go.uber.org/zap\"")
	assert.Contains(t, code, "\"io\"")
}

func TestGenerate_BulkInsert(t *testing.T) {
	code := generate(t, singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "customer_import",
		RoutineType: "PROCEDURE",
		Designation: metadata.DesignationBulkInsert,
		TableName:   "customer",
		ColumnNames: []string{"name", "status"},
	}))

	assert.Contains(t, code, "func CustomerImport(ctx context.Context, db *sql.DB, rows [][]interface{}) error {")
	assert.Contains(t, code, "_, err := runtime.ExecBulkInsert(ctx, db, \"customer\", []string{\"name\", \"status\"}, rows)")
	assert.Contains(t, code, "return err")
	assert.NotContains(t, code, "callText")
}

func TestGenerate_HiddenRoutineSkipped(t *testing.T) {
	cache := metadata.Cache{
		"_helper": {RoutineName: "_helper", RoutineType: "PROCEDURE",
			Designation: metadata.DesignationNone},
		"customer_get": {RoutineName: "customer_get", RoutineType: "PROCEDURE",
			Designation: metadata.DesignationRow0},
	}
	code := generate(t, cache)

	assert.Contains(t, code, "func CustomerGet(")
	assert.NotContains(t, code, "Helper")
}

func TestGenerate_StrategyRenames(t *testing.T) {
	strategy, err := naming.NewRegexStrategy("^shop_", "")
	require.NoError(t, err)

	cache := singleRoutineCache(&metadata.RoutineMetadata{
		RoutineName: "shop_customer_get", RoutineType: "PROCEDURE",
		Designation: metadata.DesignationRow1,
	})

	code, err := NewGenerator("sproc", 0).Generate(cache, strategy)
	require.NoError(t, err)

	assert.Contains(t, code, "func CustomerGet(")
	assert.Contains(t, code, "CALL `shop_customer_get`()")
}

func TestGenerate_SortedByRoutineName(t *testing.T) {
	cache := metadata.Cache{
		"b_second": {RoutineName: "b_second", RoutineType: "PROCEDURE", Designation: metadata.DesignationNone},
		"a_first":  {RoutineName: "a_first", RoutineType: "PROCEDURE", Designation: metadata.DesignationNone},
	}
	code := generate(t, cache)

	first := strings.Index(code, "func AFirst(")
	second := strings.Index(code, "func BSecond(")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "sproc.go")

	require.NoError(t, WriteFileIfChanged(path, "package sproc\n"))
	info, err := os.Stat(path)
	require.NoError(t, err)

	// Unchanged content leaves the file untouched.
	old := info.ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.NoError(t, WriteFileIfChanged(path, "package sproc\n"))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, old.Unix(), info.ModTime().Unix())

	// Changed content is written.
	require.NoError(t, WriteFileIfChanged(path, "package sproc2\n"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package sproc2\n", string(content))
}
