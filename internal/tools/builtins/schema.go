package builtins

// Small JSON-Schema builders mirroring tools.objectSchema/enumProp/etc,
// duplicated here (rather than exported from package tools) since the
// schema shape is a built-in-tool concern, not a dispatch-layer one.

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectProp(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}
