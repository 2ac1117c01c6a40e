// Backend options

package fs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Option describes a backend option which can be set from the
// config file, the environment or a command line flag
type Option struct {
	Name     string      // snake_case name of the option
	Help     string      // help, first line is used for the flag
	Default  interface{} // default value, also sets the type
	Value    interface{} // value set on the command line, nil if unset
	Advanced bool        // set if this is an advanced config option
}

// GetValue gets the current value which is the default if not set
func (o *Option) GetValue() interface{} {
	val := o.Value
	if val == nil {
		val = o.Default
	}
	return val
}

// String turns Option into a string
func (o *Option) String() string {
	v := o.GetValue()
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Set an Option from a string
func (o *Option) Set(s string) (err error) {
	switch o.Default.(type) {
	case string, nil:
		o.Value = s
		return nil
	case bool:
		var b bool
		_, err = fmt.Sscanln(s, &b)
		o.Value = b
	case int:
		var i int
		_, err = fmt.Sscanln(s, &i)
		o.Value = i
	case int64:
		var i int64
		_, err = fmt.Sscanln(s, &i)
		o.Value = i
	case Duration:
		var d Duration
		err = d.Set(s)
		o.Value = d
	default:
		return errors.Errorf("can't set option %q of type %T", o.Name, o.Default)
	}
	if err != nil {
		o.Value = nil
		return errors.Wrapf(err, "bad value for --%s", o.FlagName(""))
	}
	return nil
}

// Type of the value
func (o *Option) Type() string {
	switch o.Default.(type) {
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case Duration:
		return "Duration"
	}
	return "string"
}

// FlagName for the option
func (o *Option) FlagName(prefix string) string {
	name := strings.Replace(o.Name, "_", "-", -1)
	if prefix != "" {
		name = prefix + "-" + name
	}
	return name
}

// Options is a slice of configuration Option for a backend
type Options []Option

// Get the Option corresponding to name or return nil if not found
func (os Options) Get(name string) *Option {
	for i := range os {
		opt := &os[i]
		if opt.Name == name {
			return opt
		}
	}
	return nil
}
