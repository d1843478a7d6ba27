package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	texttemplate "text/template"

	"gopkg.in/yaml.v3"

	"github.com/agentic-project/agentic/pkg/pathutil"
	"github.com/agentic-project/agentic/pkg/template"
)

// TaskInput declares one input parameter of a task template.
type TaskInput struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
	Default  string `yaml:"default"`
}

// TaskFile is one output file of a task template. Path and Content are
// rendered with text/template against the resolved inputs.
type TaskFile struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// TaskTemplate is a YAML-defined generation task.
type TaskTemplate struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Inputs      []TaskInput `yaml:"inputs"`
	Files       []TaskFile  `yaml:"files"`
}

// LoadTaskTemplate parses a task template from a YAML file.
func LoadTaskTemplate(path string) (*TaskTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task template: %w", err)
	}
	var task TaskTemplate
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("parse task template %s: %w", filepath.Base(path), err)
	}
	if task.Name == "" {
		task.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := pathutil.ValidateName(task.Name); err != nil {
		return nil, err
	}
	if len(task.Files) == 0 {
		return nil, fmt.Errorf("task template %s declares no files", task.Name)
	}
	return &task, nil
}

// TemplateGenerator renders one task template.
type TemplateGenerator struct {
	task *TaskTemplate
}

// NewTemplateGenerator wraps a loaded task template.
func NewTemplateGenerator(task *TaskTemplate) *TemplateGenerator {
	return &TemplateGenerator{task: task}
}

func (g *TemplateGenerator) Name() string { return g.task.Name }

// Generate renders every file of the task. Missing required inputs fail
// before any file is rendered; defaults fill the rest.
func (g *TemplateGenerator) Generate(ctx context.Context, inputs map[string]string) ([]ProposedFile, error) {
	resolved, err := g.resolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	files := make([]ProposedFile, 0, len(g.task.Files))
	for _, tf := range g.task.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		relPath, err := g.render("path", tf.Path, resolved)
		if err != nil {
			return nil, err
		}
		if err := pathutil.ValidateRelPath(relPath); err != nil {
			return nil, err
		}
		content, err := g.render("content", tf.Content, resolved)
		if err != nil {
			return nil, err
		}
		// Second pass for the ambient placeholders ({date}, {user}, ...)
		content = template.Expand(content, nil)
		files = append(files, ProposedFile{Path: relPath, Content: []byte(content)})
	}
	return files, nil
}

func (g *TemplateGenerator) resolveInputs(inputs map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(g.task.Inputs))
	for _, in := range g.task.Inputs {
		if v, ok := inputs[in.Name]; ok {
			resolved[in.Name] = v
			continue
		}
		if in.Required {
			return nil, fmt.Errorf("task %s: missing required input %q", g.task.Name, in.Name)
		}
		resolved[in.Name] = in.Default
	}
	// Unknown inputs pass through so templates can use ad hoc values
	for k, v := range inputs {
		if _, ok := resolved[k]; !ok {
			resolved[k] = v
		}
	}
	return resolved, nil
}

func (g *TemplateGenerator) render(kind, text string, inputs map[string]string) (string, error) {
	tmpl, err := texttemplate.New(g.task.Name + ":" + kind).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("task %s: parse %s template: %w", g.task.Name, kind, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, inputs); err != nil {
		return "", fmt.Errorf("task %s: render %s: %w", g.task.Name, kind, err)
	}
	return buf.String(), nil
}

// Registry loads task templates from a list of directories and resolves them
// by name. Later directories shadow earlier ones.
type Registry struct {
	tasks map[string]*TaskTemplate
}

// NewRegistry scans dirs for *.yaml and *.yml task templates. Missing
// directories are skipped; malformed templates are an error.
func NewRegistry(dirs []string) (*Registry, error) {
	reg := &Registry{tasks: make(map[string]*TaskTemplate)}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read task dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			task, err := LoadTaskTemplate(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			reg.tasks[task.Name] = task
		}
	}
	return reg, nil
}

// Lookup returns the generator for a task name.
func (r *Registry) Lookup(name string) (Generator, error) {
	task, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("no task template named %q", name)
	}
	return NewTemplateGenerator(task), nil
}

// Names lists the registered task names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
