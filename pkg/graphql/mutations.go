package graphql

import (
	"github.com/graphql-go/graphql"
)

// ok adapts an error-only edit to a Boolean mutation
func ok(err error) (any, error) {
	if err != nil {
		return false, err
	}
	return true, nil
}

func mutationType(b Backend) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"relocateAsset": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"x":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"y":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return ok(b.RelocateAsset(p.Args["id"].(string), point(p.Args)))
				},
			},
			"renameAsset": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return ok(b.RenameAsset(p.Args["id"].(string), p.Args["name"].(string)))
				},
			},
			"setGroupExpanded": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"expanded": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return ok(b.SetGroupExpanded(p.Args["id"].(string), p.Args["expanded"].(bool)))
				},
			},
			"createRelation": &graphql.Field{
				Type: graphql.ID,
				Args: graphql.FieldConfigArgument{
					"from":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"to":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"type":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"label": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					label, _ := p.Args["label"].(string)
					id, err := b.CreateRelation(p.Args["from"].(string), p.Args["to"].(string), p.Args["type"].(string), label)
					if err != nil {
						return nil, err
					}
					return id, nil
				},
			},
			"deleteRelation": &graphql.Field{
				Type: graphql.Boolean,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return ok(b.DeleteRelation(p.Args["id"].(string)))
				},
			},
			"setRelationHidden": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"hidden": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return ok(b.SetRelationHidden(p.Args["id"].(string), p.Args["hidden"].(bool)))
				},
			},
			"recenter": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.ID))},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, given := p.Args["ids"].([]any)
					if !given {
						return ok(b.Recenter())
					}
					ids := make([]string, 0, len(raw))
					for _, v := range raw {
						ids = append(ids, v.(string))
					}
					return ok(b.RecenterOnEntities(ids))
				},
			},
		},
	})
}
