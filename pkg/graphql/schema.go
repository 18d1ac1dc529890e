package graphql

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/render"
)

type frameKey struct{}

// withFrame fixes the frame every resolver of one request reads
func withFrame(ctx context.Context, f render.Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

func frameFrom(p graphql.ResolveParams) (render.Frame, error) {
	if p.Context != nil {
		if f, ok := p.Context.Value(frameKey{}).(render.Frame); ok {
			return f, nil
		}
	}
	return render.Frame{}, fmt.Errorf("no frame in request context")
}

// frameField builds a query field reading the request's frame
func frameField(t graphql.Output, fn func(render.Frame) any) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			f, err := frameFrom(p)
			if err != nil {
				return nil, err
			}
			return fn(f), nil
		},
	}
}

func idArg() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
}

// GenerateSchema builds the schema over b
func GenerateSchema(b Backend) (graphql.Schema, error) {
	queryFields := graphql.Fields{
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		},
		"seq":        frameField(graphql.Int, func(f render.Frame) any { return int(f.Seq) }),
		"mode":       frameField(graphql.String, func(f render.Frame) any { return f.Mode.String() }),
		"assets":     frameField(graphql.NewList(assetType), func(f render.Frame) any { return f.Assets }),
		"groups":     frameField(graphql.NewList(groupType), func(f render.Frame) any { return f.Groups }),
		"edges":      frameField(graphql.NewList(edgeType), func(f render.Frame) any { return f.Edges }),
		"selected":   frameField(graphql.NewList(graphql.ID), func(f render.Frame) any { return f.Selected }),
		"pending":    frameField(graphql.Int, func(f render.Frame) any { return f.Pending }),
		"stale":      frameField(graphql.Boolean, func(f render.Frame) any { return f.Stale }),
		"viewport":   frameField(viewportType, func(f render.Frame) any { return f.Transform }),
		"connection": frameField(connectionType, func(f render.Frame) any { return f.Connection }),
		"asset": {
			Type: assetType,
			Args: idArg(),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				f, err := frameFrom(p)
				if err != nil {
					return nil, err
				}
				if a, ok := f.Asset(p.Args["id"].(string)); ok {
					return a, nil
				}
				return nil, nil
			},
		},
		"group": {
			Type: groupType,
			Args: idArg(),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				f, err := frameFrom(p)
				if err != nil {
					return nil, err
				}
				if g, ok := f.Group(p.Args["id"].(string)); ok {
					return g, nil
				}
				return nil, nil
			},
		},
		"validOutgoingTypes": {
			Type: graphql.NewList(relationTypeType),
			Args: graphql.FieldConfigArgument{
				"assetType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return b.ValidOutgoingTypes(p.Args["assetType"].(string)), nil
			},
		},
		"validIncomingTypes": {
			Type: graphql.NewList(relationTypeType),
			Args: graphql.FieldConfigArgument{
				"assetType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return b.ValidIncomingTypes(p.Args["assetType"].(string)), nil
			},
		},
		"notifications": {
			Type: graphql.NewList(notificationType),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return b.Notifications(), nil
			},
		},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: queryFields,
	})

	s, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType(b),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func point(args map[string]any) geom.Point {
	x, _ := args["x"].(float64)
	y, _ := args["y"].(float64)
	return geom.Point{X: x, Y: y}
}
