package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/accountantiq-dev/accountantiq/internal/model"
)

// UnknownProfileError reports a profile name with no definition on disk.
type UnknownProfileError struct {
	Name string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown export profile %q", e.Name)
}

// DefaultProfileName is the profile created for every new workspace.
const DefaultProfileName = "default"

// DefaultProfile returns the standard Sage-style audit-trail layout.
func DefaultProfile() model.ExportProfile {
	return model.ExportProfile{
		Name: DefaultProfileName,
		Columns: []model.ProfileColumn{
			{Field: "transaction_id", Header: "Reference"},
			{Field: "date", Header: "Date"},
			{Field: "description", Header: "Details"},
			{Field: "nominal_code", Header: "Nominal Code"},
			{Field: "tax_code", Header: "Tax Code"},
			{Field: "net_amount", Header: "Net Amount"},
		},
	}
}

// LoadProfile reads a named profile from the profiles directory. The
// default profile is materialized on first use; any other missing name
// is an *UnknownProfileError.
func LoadProfile(dir, name string) (model.ExportProfile, error) {
	path := filepath.Join(dir, name+".yaml")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if name == DefaultProfileName {
			p := DefaultProfile()
			if err := SaveProfile(dir, p); err != nil {
				return model.ExportProfile{}, err
			}
			return p, nil
		}
		return model.ExportProfile{}, &UnknownProfileError{Name: name}
	}
	if err != nil {
		return model.ExportProfile{}, fmt.Errorf("reading profile %s: %w", name, err)
	}

	var p model.ExportProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.ExportProfile{}, fmt.Errorf("parsing profile %s: %w", name, err)
	}
	return p, nil
}

// SaveProfile writes a profile definition to the profiles directory.
func SaveProfile(dir string, p model.ExportProfile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating profiles dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling profile %s: %w", p.Name, err)
	}
	path := filepath.Join(dir, p.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing profile %s: %w", p.Name, err)
	}
	return nil
}
