package store

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portlink-backend/internal/db"
	"portlink-backend/internal/model"
	"portlink-backend/internal/parse"
)

var memDBSeq atomic.Int64

// newSQLiteDB opens a private in-memory database with the full schema.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storememdb%d?mode=memory&cache=shared", memDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func ptr[T any](v T) *T { return &v }

func seedProject(t *testing.T, gdb *gorm.DB, name string) model.Project {
	t.Helper()
	p := model.Project{Name: name}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func seedPortType(t *testing.T, gdb *gorm.DB, code, name string) model.PortType {
	t.Helper()
	pt := model.PortType{Code: code, Name: name}
	require.NoError(t, gdb.Create(&pt).Error)
	return pt
}

func seedTemplate(t *testing.T, gdb *gorm.DB, name string, rules ...model.PortTemplateRule) model.DeviceTemplate {
	t.Helper()
	for i := range rules {
		if rules[i].SortOrder == 0 {
			rules[i].SortOrder = i + 1
		}
	}
	tpl := model.DeviceTemplate{Name: name, Rules: rules}
	require.NoError(t, gdb.Create(&tpl).Error)
	return tpl
}

// seedDirection creates the PORT_DIRECTION attribute with FROM/TO options.
func seedDirection(t *testing.T, gdb *gorm.DB) (attr model.AttributeDef, from, to model.AttributeOption) {
	t.Helper()
	attr = model.AttributeDef{Scope: model.ScopePort, Code: "PORT_DIRECTION", Name: "Direction", DataType: "enum"}
	require.NoError(t, gdb.Create(&attr).Error)
	from = model.AttributeOption{AttributeID: attr.ID, Code: "FROM", Name: "FROM"}
	to = model.AttributeOption{AttributeID: attr.ID, Code: "TO", Name: "TO"}
	require.NoError(t, gdb.Create(&from).Error)
	require.NoError(t, gdb.Create(&to).Error)
	return attr, from, to
}

func setPortOption(t *testing.T, gdb *gorm.DB, portID, attrID, optionID int64) {
	t.Helper()
	v := model.PortAttrValue{PortID: portID, AttributeID: attrID, OptionID: &optionID}
	require.NoError(t, gdb.Create(&v).Error)
}

func portByName(t *testing.T, gdb *gorm.DB, deviceID int64, name string) model.Port {
	t.Helper()
	var p model.Port
	require.NoError(t, gdb.Where("device_id = ? AND name = ?", deviceID, name).First(&p).Error)
	return p
}

func portNames(t *testing.T, gdb *gorm.DB, deviceID int64) []string {
	t.Helper()
	var names []string
	require.NoError(t, gdb.Model(&model.Port{}).Where("device_id = ?", deviceID).Pluck("name", &names).Error)
	sort.Slice(names, func(i, j int) bool { return parse.NaturalLess(names[i], names[j]) })
	return names
}

// world is a small project with a powered template, used by most tests.
type world struct {
	db      *gorm.DB
	st      Store
	project model.Project
	power   model.PortType
	tpl     model.DeviceTemplate
}

func newWorld(t *testing.T) world {
	t.Helper()
	gdb := newSQLiteDB(t)
	w := world{db: gdb, st: NewGormStore(gdb)}
	w.project = seedProject(t, gdb, "P1")
	w.power = seedPortType(t, gdb, "POWER", "Power")
	w.tpl = seedTemplate(t, gdb, "PDU", model.PortTemplateRule{
		Code: "PW", Quantity: 2, PortTypeID: &w.power.ID, MaxLinks: 1,
	})
	return w
}
