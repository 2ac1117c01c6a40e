package configstruct_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config/configstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conf struct {
	A string
	B string
}

type driveConf struct {
	ClientID      string `config:"client_id"`
	UseTrash      bool
	ListChunk     int64
	PacerBurst    int
	Retries       uint
	PacerMinSleep fs.Duration
}

func TestItemsError(t *testing.T) {
	_, err := configstruct.Items(nil)
	assert.EqualError(t, err, "argument must be a pointer")
	_, err = configstruct.Items(new(int))
	assert.EqualError(t, err, "argument must be a pointer to a struct")
}

func TestItems(t *testing.T) {
	in := &driveConf{
		ClientID:      "id",
		UseTrash:      true,
		ListChunk:     1000,
		PacerBurst:    100,
		Retries:       3,
		PacerMinSleep: fs.Duration(100 * time.Millisecond),
	}
	got, err := configstruct.Items(in)
	require.NoError(t, err)
	want := []configstruct.Item{
		{Name: "client_id", Field: "ClientID", Num: 0, Value: string("id")},
		{Name: "use_trash", Field: "UseTrash", Num: 1, Value: true},
		{Name: "list_chunk", Field: "ListChunk", Num: 2, Value: int64(1000)},
		{Name: "pacer_burst", Field: "PacerBurst", Num: 3, Value: int(100)},
		{Name: "retries", Field: "Retries", Num: 4, Value: uint(3)},
		{Name: "pacer_min_sleep", Field: "PacerMinSleep", Num: 5, Value: fs.Duration(100 * time.Millisecond)},
	}
	assert.Equal(t, want, got)
}

// a simple configmap.Getter for testing
type configMap map[string]string

// Get the value
func (c configMap) Get(key string) (value string, ok bool) {
	value, ok = c[key]
	return value, ok
}

func TestSetBasics(t *testing.T) {
	c := &conf{A: "one", B: "two"}
	err := configstruct.Set(configMap{}, c)
	require.NoError(t, err)
	assert.Equal(t, &conf{A: "one", B: "two"}, c)

	err = configstruct.Set(configMap{"a": "ONE"}, c)
	require.NoError(t, err)
	assert.Equal(t, &conf{A: "ONE", B: "two"}, c)
}

func TestSetFull(t *testing.T) {
	in := &driveConf{
		ClientID:      "id",
		UseTrash:      true,
		ListChunk:     1000,
		PacerBurst:    100,
		Retries:       3,
		PacerMinSleep: fs.Duration(100 * time.Millisecond),
	}
	m := configMap{
		"client_id":       "ID2",
		"use_trash":       "FALSE",
		"list_chunk":      " 500 ",
		"pacer_burst":     "0x10",
		"retries":         "",
		"pacer_min_sleep": "10ms",
	}
	want := &driveConf{
		ClientID:      "ID2",
		UseTrash:      false,
		ListChunk:     500,
		PacerBurst:    16,
		Retries:       3,
		PacerMinSleep: fs.Duration(10 * time.Millisecond),
	}
	err := configstruct.Set(m, in)
	require.NoError(t, err)
	assert.Equal(t, want, in)
}

func TestSetError(t *testing.T) {
	in := &driveConf{}
	err := configstruct.Set(configMap{"list_chunk": "lots"}, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `couldn't parse config item "list_chunk" = "lots" as int64`)
}

func TestStringToInterface(t *testing.T) {
	for _, test := range []struct {
		in   string
		def  interface{}
		want interface{}
		err  string
	}{
		{"", string(""), "", ""},
		{"   string   ", string(""), "   string   ", ""},
		{"123", int(0), int(123), ""},
		{"0x123", int(0), int(0x123), ""},
		{"-123", int(0), int(-123), ""},
		{"0", false, false, ""},
		{"1", false, true, ""},
		{"FALSE", false, false, ""},
		{"true", false, true, ""},
		{"123", int64(0), int64(123), ""},
		{"123x", int64(0), nil, "parsing \"123x\" as int64 failed: expected newline"},
		{"truth", false, nil, "parsing \"truth\" as bool failed: strconv.ParseBool: parsing \"truth\": invalid syntax"},
		{"1s", fs.Duration(0), fs.Duration(time.Second), ""},
		{"1m1s", fs.Duration(0), fs.Duration(61 * time.Second), ""},
		{"2d", fs.Duration(0), fs.Duration(48 * time.Hour), ""},
		{"1potato", fs.Duration(0), nil, `parsing "1potato" as fs.Duration failed: invalid duration "1potato"`},
	} {
		what := fmt.Sprintf("parse %q as %T", test.in, test.def)
		got, err := configstruct.StringToInterface(test.def, test.in)
		if test.err == "" {
			require.NoError(t, err, what)
			assert.Equal(t, test.want, got, what)
		} else {
			assert.Nil(t, got, what)
			assert.EqualError(t, err, test.err, what)
		}
	}
}
