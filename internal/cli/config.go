package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/matzehuels/starkviz/pkg/errors"
)

// loadConfig decodes a TOML file into v and then reapplies every flag the
// user set explicitly, so flags always win over the file. Keys in the file
// that v has no field for are an error.
//
// A config file for the render command looks like:
//
//	width = 2048
//	height = 1024
//	envelope = [-10.0, 35.0, 30.0, 60.0]
//	format = "png"
//	point_size = 2
//	color = "#ff8800"
//	fill = true
func loadConfig(path string, fs *pflag.FlagSet, v any) error {
	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	md, err := toml.DecodeFile(path, v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys %v", path, undecoded)
	}

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	return nil
}
