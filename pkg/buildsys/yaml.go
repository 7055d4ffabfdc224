package buildsys

import (
	"io/ioutil"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type yamlScript struct {
	Build       []string               `yaml:"build"`
	Env         map[string]string      `yaml:"env"`
	ShellPlugin map[string]interface{} `yaml:"shell_plugin"`
}

func readYAMLScript(filename string) (*BuildScript, error) {
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	var doc yamlScript
	err = yaml.Unmarshal(content, &doc)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", filename)
	}

	result := &BuildScript{
		Path:        filename,
		Steps:       doc.Build,
		Env:         doc.Env,
		ShellPlugin: doc.ShellPlugin,
		Options:     map[string]ScriptOption{},
	}

	if result.Steps == nil {
		result.Steps = []string{}
	}
	if result.Env == nil {
		result.Env = map[string]string{}
	}

	return result, nil
}
