// Package schema implements the config type system used to describe run
// configuration: scalar, array, map and record types (Shape, Permissive and
// Selector), the Field wrapper carrying requiredness and defaults, and the
// Process function that validates a configuration document against a type
// and returns its normalized form.
//
// Types are immutable values. Two types built independently with the same
// kind, name and children have the same Key, which is what the run-config
// type registry uses to detect conflicting definitions.
//
// Basic usage:
//
//	creds := schema.NewShape(schema.Fields{
//	    "host": schema.NewField(schema.String),
//	    "port": schema.NewField(schema.Int, schema.DefaultValue(5432)),
//	}, schema.WithName("Credentials"))
//
//	res := schema.Process(creds, map[string]any{"host": "db"})
//	if !res.Success {
//	    for _, e := range res.Errors {
//	        fmt.Println(e.Path, e.Message)
//	    }
//	}
package schema
