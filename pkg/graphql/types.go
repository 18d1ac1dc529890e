package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/interaction"
	"github.com/dd0wney/cluso-canvas/pkg/reconcile"
	"github.com/dd0wney/cluso-canvas/pkg/render"
	"github.com/dd0wney/cluso-canvas/pkg/router"
	"github.com/dd0wney/cluso-canvas/pkg/schema"
	"github.com/dd0wney/cluso-canvas/pkg/viewport"
)

// from builds a resolver reading a field of a typed source
func from[T any](fn func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		switch v := p.Source.(type) {
		case T:
			return fn(v), nil
		case *T:
			if v == nil {
				return nil, nil
			}
			return fn(*v), nil
		}
		return nil, nil
	}
}

func classes(cs []render.Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

var pointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Point",
	Fields: graphql.Fields{
		"x": &graphql.Field{Type: graphql.Float, Resolve: from(func(p geom.Point) any { return p.X })},
		"y": &graphql.Field{Type: graphql.Float, Resolve: from(func(p geom.Point) any { return p.Y })},
	},
})

var rectType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Rect",
	Fields: graphql.Fields{
		"x":      &graphql.Field{Type: graphql.Float, Resolve: from(func(r geom.Rect) any { return r.Min.X })},
		"y":      &graphql.Field{Type: graphql.Float, Resolve: from(func(r geom.Rect) any { return r.Min.Y })},
		"width":  &graphql.Field{Type: graphql.Float, Resolve: from(func(r geom.Rect) any { return r.Size.Width })},
		"height": &graphql.Field{Type: graphql.Float, Resolve: from(func(r geom.Rect) any { return r.Size.Height })},
	},
})

var anchorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Anchor",
	Fields: graphql.Fields{
		"point": &graphql.Field{Type: pointType, Resolve: from(func(a geom.Anchor) any { return a.Point })},
		"side":  &graphql.Field{Type: graphql.String, Resolve: from(func(a geom.Anchor) any { return a.Side.String() })},
	},
})

var endpointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Endpoint",
	Fields: graphql.Fields{
		"assetId":  &graphql.Field{Type: graphql.ID, Resolve: from(func(e router.Endpoint) any { return e.AssetID })},
		"viaGroup": &graphql.Field{Type: graphql.ID, Resolve: from(func(e router.Endpoint) any { return e.ViaGroup })},
		"anchor":   &graphql.Field{Type: anchorType, Resolve: from(func(e router.Endpoint) any { return e.Anchor })},
	},
})

var edgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Edge",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: from(func(e router.Edge) any { return e.ID })},
		"type":          &graphql.Field{Type: graphql.String, Resolve: from(func(e router.Edge) any { return e.Type })},
		"label":         &graphql.Field{Type: graphql.String, Resolve: from(func(e router.Edge) any { return e.Label })},
		"asserted":      &graphql.Field{Type: graphql.Boolean, Resolve: from(func(e router.Edge) any { return e.Asserted })},
		"style":         &graphql.Field{Type: graphql.String, Resolve: from(func(e router.Edge) any { return string(e.Style) })},
		"labelLocation": &graphql.Field{Type: graphql.Float, Resolve: from(func(e router.Edge) any { return e.LabelLocation })},
		"busy":          &graphql.Field{Type: graphql.Boolean, Resolve: from(func(e router.Edge) any { return e.Busy })},
		"deletable":     &graphql.Field{Type: graphql.Boolean, Resolve: from(func(e router.Edge) any { return router.Deletable(e) })},
		"bindings": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: from(func(e router.Edge) any {
			out := make([]string, len(e.Bindings))
			for i, b := range e.Bindings {
				out[i] = string(b)
			}
			return out
		})},
		"source": &graphql.Field{Type: endpointType, Resolve: from(func(e router.Edge) any { return e.Source })},
		"target": &graphql.Field{Type: endpointType, Resolve: from(func(e router.Edge) any { return e.Target })},
	},
})

var assetType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Asset",
	Fields: graphql.Fields{
		"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: from(func(a render.AssetView) any { return a.ID })},
		"type":    &graphql.Field{Type: graphql.String, Resolve: from(func(a render.AssetView) any { return a.Type })},
		"name":    &graphql.Field{Type: graphql.String, Resolve: from(func(a render.AssetView) any { return a.Name })},
		"groupId": &graphql.Field{Type: graphql.ID, Resolve: from(func(a render.AssetView) any { return a.GroupID })},
		"rect":    &graphql.Field{Type: rectType, Resolve: from(func(a render.AssetView) any { return a.Rect })},
		"screen":  &graphql.Field{Type: rectType, Resolve: from(func(a render.AssetView) any { return a.Screen })},
		"overlay": &graphql.Field{Type: rectType, Resolve: from(func(a render.AssetView) any {
			if a.Overlay == nil {
				return nil
			}
			return *a.Overlay
		})},
		"classes": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: from(func(a render.AssetView) any { return classes(a.Classes) })},
	},
})

var groupType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Group",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: from(func(g render.GroupView) any { return g.ID })},
		"label":     &graphql.Field{Type: graphql.String, Resolve: from(func(g render.GroupView) any { return g.Label })},
		"rect":      &graphql.Field{Type: rectType, Resolve: from(func(g render.GroupView) any { return g.Rect })},
		"screen":    &graphql.Field{Type: rectType, Resolve: from(func(g render.GroupView) any { return g.Screen })},
		"collapsed": &graphql.Field{Type: graphql.Boolean, Resolve: from(func(g render.GroupView) any { return g.Collapsed })},
		"members":   &graphql.Field{Type: graphql.Int, Resolve: from(func(g render.GroupView) any { return g.Members })},
		"classes":   &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: from(func(g render.GroupView) any { return classes(g.Classes) })},
	},
})

var relationTypeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RelationType",
	Fields: graphql.Fields{
		"name":  &graphql.Field{Type: graphql.String, Resolve: from(func(rt schema.RelationType) any { return rt.Name })},
		"label": &graphql.Field{Type: graphql.String, Resolve: from(func(rt schema.RelationType) any { return rt.Label })},
		"from":  &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: from(func(rt schema.RelationType) any { return rt.From })},
		"to":    &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: from(func(rt schema.RelationType) any { return rt.To })},
	},
})

var optionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TypeOption",
	Fields: graphql.Fields{
		"type":      &graphql.Field{Type: relationTypeType, Resolve: from(func(o schema.Option) any { return o.Type })},
		"direction": &graphql.Field{Type: graphql.String, Resolve: from(func(o schema.Option) any { return o.Direction.String() })},
	},
})

var connectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Connection",
	Fields: graphql.Fields{
		"phase":      &graphql.Field{Type: graphql.String, Resolve: from(func(c interaction.Connection) any { return c.Phase.String() })},
		"sourceId":   &graphql.Field{Type: graphql.ID, Resolve: from(func(c interaction.Connection) any { return c.SourceID })},
		"sourceType": &graphql.Field{Type: graphql.String, Resolve: from(func(c interaction.Connection) any { return c.SourceType })},
		"candidates": &graphql.Field{Type: graphql.NewList(graphql.ID), Resolve: from(func(c interaction.Connection) any { return c.Candidates })},
		"targetId":   &graphql.Field{Type: graphql.ID, Resolve: from(func(c interaction.Connection) any { return c.TargetID })},
		"options":    &graphql.Field{Type: graphql.NewList(optionType), Resolve: from(func(c interaction.Connection) any { return c.Options })},
		"pointer":    &graphql.Field{Type: pointType, Resolve: from(func(c interaction.Connection) any { return c.Pointer })},
	},
})

var viewportType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Viewport",
	Fields: graphql.Fields{
		"zoom":           &graphql.Field{Type: graphql.Float, Resolve: from(func(t viewport.Transform) any { return t.Zoom })},
		"origin":         &graphql.Field{Type: pointType, Resolve: from(func(t viewport.Transform) any { return t.Origin })},
		"width":          &graphql.Field{Type: graphql.Float, Resolve: from(func(t viewport.Transform) any { return t.Width })},
		"height":         &graphql.Field{Type: graphql.Float, Resolve: from(func(t viewport.Transform) any { return t.Height })},
		"suppressRedraw": &graphql.Field{Type: graphql.Boolean, Resolve: from(func(t viewport.Transform) any { return t.SuppressRedraw })},
	},
})

var notificationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Notification",
	Fields: graphql.Fields{
		"level":   &graphql.Field{Type: graphql.String, Resolve: from(func(n reconcile.Notification) any { return string(n.Level) })},
		"message": &graphql.Field{Type: graphql.String, Resolve: from(func(n reconcile.Notification) any { return n.Message })},
		"op":      &graphql.Field{Type: graphql.String, Resolve: from(func(n reconcile.Notification) any { return n.Op })},
		"entity":  &graphql.Field{Type: graphql.ID, Resolve: from(func(n reconcile.Notification) any { return n.Entity })},
	},
})
