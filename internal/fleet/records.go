package fleet

import (
	"fmt"
	"strconv"
	"strings"

	"phonefleet/internal/tabular"
)

// Device export columns.
const (
	ColumnID           = "id"
	ColumnUsersID      = "users_id"
	ColumnStatesID     = "states_id"
	ColumnPhoneModelID = "phonemodels_id"
	ColumnDateCreation = "date_creation"
	ColumnComment      = "comment"
	ColumnContact      = "contact"
	ColumnDateMod      = "date_mod"
	ColumnName         = "name"
)

// ActiveState is the states_id value of an assigned, in-service device.
const ActiveState = 2

// DeviceColumns are the columns every device file must carry.
var DeviceColumns = []string{
	ColumnUsersID,
	ColumnStatesID,
	ColumnPhoneModelID,
	ColumnDateCreation,
	ColumnComment,
	ColumnContact,
	ColumnDateMod,
	ColumnName,
}

// DeviceSet is a device export: its full header (including columns the
// pipeline never reads) and one record per row.
type DeviceSet struct {
	header  []string
	index   map[string]int
	Records []DeviceRecord
}

// DeviceRecord is one device-assignment row. Values are kept as raw text and
// addressed by column name so outputs preserve the input layout.
type DeviceRecord struct {
	index  map[string]int
	values []string
}

// NewDeviceSet validates the device columns of table and wraps its rows. The
// rows are copied.
func NewDeviceSet(table *tabular.Table) (*DeviceSet, error) {
	if table == nil {
		return nil, fmt.Errorf("device table: %w", tabular.ErrEmptyFile)
	}
	if err := table.Require(DeviceColumns...); err != nil {
		return nil, fmt.Errorf("device table: %w", err)
	}
	set := newDeviceSet(table.Header)
	set.Records = make([]DeviceRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		set.Records = append(set.Records, set.record(row))
	}
	return set, nil
}

// LoadDevices reads and validates a device CSV file.
func LoadDevices(path string, opts tabular.ReadOptions) (*DeviceSet, error) {
	table, err := tabular.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	set, err := NewDeviceSet(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

func newDeviceSet(header []string) *DeviceSet {
	cp := append([]string(nil), header...)
	index := make(map[string]int, len(cp))
	for i, col := range cp {
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	return &DeviceSet{header: cp, index: index}
}

func (s *DeviceSet) record(values []string) DeviceRecord {
	row := make([]string, len(s.header))
	copy(row, values)
	return DeviceRecord{index: s.index, values: row}
}

// empty returns a set with the same header and no records.
func (s *DeviceSet) empty() *DeviceSet {
	return &DeviceSet{header: s.header, index: s.index}
}

// Header returns a copy of the column names.
func (s *DeviceSet) Header() []string {
	return append([]string(nil), s.header...)
}

// HasColumn reports whether the set carries the named column.
func (s *DeviceSet) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of records.
func (s *DeviceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Clone returns a deep copy of the set.
func (s *DeviceSet) Clone() *DeviceSet {
	out := s.empty()
	out.Records = make([]DeviceRecord, len(s.Records))
	for i, rec := range s.Records {
		out.Records[i] = rec.clone()
	}
	return out
}

// Table converts the set back into rows for persistence.
func (s *DeviceSet) Table() *tabular.Table {
	table := &tabular.Table{Header: s.Header(), Rows: make([][]string, len(s.Records))}
	for i, rec := range s.Records {
		table.Rows[i] = rec.Values()
	}
	return table
}

// Value returns the raw text of column, or "" when the column is absent.
func (r DeviceRecord) Value(column string) string {
	idx, ok := r.index[column]
	if !ok {
		return ""
	}
	return r.values[idx]
}

// SetValue overwrites column. Unknown columns are ignored.
func (r *DeviceRecord) SetValue(column, value string) {
	if idx, ok := r.index[column]; ok {
		r.values[idx] = value
	}
}

// Values returns a copy of the raw row.
func (r DeviceRecord) Values() []string {
	return append([]string(nil), r.values...)
}

// UsersID returns the trimmed users_id text.
func (r DeviceRecord) UsersID() UserID {
	return UserID(strings.TrimSpace(r.Value(ColumnUsersID)))
}

// DateMod returns the raw date_mod value.
func (r DeviceRecord) DateMod() string {
	return r.Value(ColumnDateMod)
}

// Name returns the device model label.
func (r DeviceRecord) Name() string {
	return r.Value(ColumnName)
}

// MissingDate reports whether date_mod still needs repair.
func (r DeviceRecord) MissingDate() bool {
	return r.DateMod() == ""
}

// Isolated reports whether the device is active but assigned to nobody.
func (r DeviceRecord) Isolated() bool {
	users, ok := parseNumber(r.Value(ColumnUsersID))
	if !ok || users != 0 {
		return false
	}
	state, ok := parseNumber(r.Value(ColumnStatesID))
	return ok && state == ActiveState
}

// ActiveAssignment reports whether the device is active and assigned to a real
// user.
func (r DeviceRecord) ActiveAssignment() bool {
	state, ok := parseNumber(r.Value(ColumnStatesID))
	if !ok || state != ActiveState {
		return false
	}
	users, ok := parseNumber(r.Value(ColumnUsersID))
	return ok && users > 0
}

func (r DeviceRecord) clone() DeviceRecord {
	return DeviceRecord{index: r.index, values: r.Values()}
}

// rowKey encodes every cell with a length prefix so distinct rows never
// collide.
func (r DeviceRecord) rowKey() string {
	var b strings.Builder
	for _, v := range r.values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
