package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	coordinateInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CoordinateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	favoriteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Favorite",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"name":              &graphql.Field{Type: graphql.String},
			"path":              &graphql.Field{Type: graphql.NewList(coordinateType)},
			"run_count":         &graphql.Field{Type: graphql.Int},
			"best_time_seconds": &graphql.Field{Type: graphql.Float},
			"distance_miles":    &graphql.Field{Type: graphql.Float},
			"created_at":        &graphql.Field{Type: graphql.DateTime},
		},
	})

	attemptType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Attempt",
		Fields: graphql.Fields{
			"attempt":        &graphql.Field{Type: graphql.Int},
			"scale_miles":    &graphql.Field{Type: graphql.Float},
			"num_points":     &graphql.Field{Type: graphql.Int},
			"status":         &graphql.Field{Type: graphql.String},
			"distance_miles": &graphql.Field{Type: graphql.Float},
			"reason":         &graphql.Field{Type: graphql.String},
		},
	})

	loopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Loop",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"outcome":      &graphql.Field{Type: graphql.String},
			"target_miles": &graphql.Field{Type: graphql.Float},
			"validated":    &graphql.Field{Type: graphql.Boolean},
			"gap_miles":    &graphql.Field{Type: graphql.Float},
			"cached":       &graphql.Field{Type: graphql.Boolean},
			"attempts":     &graphql.Field{Type: graphql.NewList(attemptType)},
			"actual_miles": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domain.GenerationResult).ActualMiles(), nil
				},
			},
			"path": &graphql.Field{
				Type: graphql.NewList(coordinateType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					res := p.Source.(*domain.GenerationResult)
					if res.SmoothedPath != nil {
						return res.SmoothedPath, nil
					}
					if res.Route == nil {
						return nil, nil
					}
					return res.Route.Coordinates, nil
				},
			},
		},
	})

	favoriteByName := func(p graphql.ResolveParams) (interface{}, error) {
		fav, err := deps.Favorites.Get(p.Context, p.Args["name"].(string))
		if err != nil {
			return nil, err
		}
		return toFavoriteView(fav), nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"favorites": &graphql.Field{
				Type:        graphql.NewList(favoriteType),
				Description: "Saved loops, oldest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					favs, err := deps.Favorites.LoadAll(p.Context, p.Args["limit"].(int), p.Args["offset"].(int))
					if err != nil {
						return nil, err
					}
					views := make([]FavoriteView, len(favs))
					for i := range favs {
						views[i] = toFavoriteView(&favs[i])
					}
					return views, nil
				},
			},
			"favorite": &graphql.Field{
				Type:        favoriteType,
				Description: "A saved loop by name",
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: favoriteByName,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"generateLoop": &graphql.Field{
				Type:        loopType,
				Description: "Search for a loop of the given length starting at (lat, lon)",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"miles":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"smooth": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Generation.Generate(p.Context, usecases.GenerateRequest{
						Start:       domain.Coordinate{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)},
						TargetMiles: p.Args["miles"].(float64),
						Smooth:      p.Args["smooth"].(bool),
					})
				},
			},
			"saveFavorite": &graphql.Field{
				Type: favoriteType,
				Args: graphql.FieldConfigArgument{
					"name":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"path":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(coordinateInput))},
					"distance_miles": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, _ := p.Args["path"].([]interface{})
					path := make([]domain.Coordinate, 0, len(raw))
					for _, v := range raw {
						m, _ := v.(map[string]interface{})
						lat, _ := m["lat"].(float64)
						lon, _ := m["lon"].(float64)
						path = append(path, domain.Coordinate{Lat: lat, Lon: lon})
					}
					fav, err := deps.Favorites.Save(p.Context, p.Args["name"].(string), path, p.Args["distance_miles"].(float64))
					if err != nil {
						return nil, err
					}
					return toFavoriteView(fav), nil
				},
			},
			"deleteFavorite": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"name": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Favorites.Remove(p.Context, p.Args["name"].(string)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		// generateLoop runs a full search.
		ctx, cancel := context.WithTimeout(c.UserContext(), deps.generateTimeout())
		defer cancel()

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})
		return c.JSON(result)
	}
}
