package workflow

import "github.com/AkibDa/Code-Genesis/pkg/tools"

// Schema describes the value a structured model call must produce.
type Schema struct {
	// Name is the tool name the model submits the value through.
	Name        string
	Description string
	InputSchema tools.InputSchema
}

// TaskSteps is what the model returns for a task plan; the caller attaches the plan afterwards.
type TaskSteps struct {
	ImplementationSteps []ImplementationTask `json:"implementation_steps" validate:"required,min=1,dive"`
}

// PlanSchema describes a Plan.
//
//nolint:gochecknoglobals // read-only schema description
var PlanSchema = Schema{
	Name:        "submit_plan",
	Description: "Submit the complete engineering project plan.",
	InputSchema: tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"name": {
				Type:        "string",
				Description: "The name of the app to be built",
			},
			"description": {
				Type:        "string",
				Description: "A one-line description of the app, e.g. 'A web application for managing personal finances'",
			},
			"techstack": {
				Type:        "string",
				Description: "The tech stack to be used, e.g. 'React', 'Python', 'Flask'",
			},
			"features": {
				Type:        "array",
				Description: "The features to implement, e.g. 'User authentication'",
				Items:       &tools.Property{Type: "string"},
			},
			"files": {
				Type:        "array",
				Description: "The files to create, each with a path and a purpose",
				Items: &tools.Property{
					Type: "object",
					Properties: map[string]tools.Property{
						"path": {
							Type:        "string",
							Description: "Relative file path, e.g. 'src/App.js'",
						},
						"purpose": {
							Type:        "string",
							Description: "What the file is for, e.g. 'Main application component'",
						},
					},
				},
			},
		},
		Required: []string{"name", "description", "techstack", "features", "files"},
	},
}

// TaskPlanSchema describes TaskSteps.
//
//nolint:gochecknoglobals // read-only schema description
var TaskPlanSchema = Schema{
	Name:        "submit_task_plan",
	Description: "Submit the ordered implementation steps.",
	InputSchema: tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"implementation_steps": {
				Type:        "array",
				Description: "Steps in dependency order; each changes exactly one file",
				Items: &tools.Property{
					Type: "object",
					Properties: map[string]tools.Property{
						"filepath": {
							Type:        "string",
							Description: "Relative path of the file to create or modify",
						},
						"task_description": {
							Type:        "string",
							Description: "Exactly what to implement, naming variables, functions, classes, signatures and imports",
						},
					},
				},
			},
		},
		Required: []string{"implementation_steps"},
	},
}
