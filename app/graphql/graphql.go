// Package graphql exposes a read-only admin query surface over orders,
// jobs, and payments. Mutations stay on the REST routes where the
// lifecycle rules live.
package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/kgyan/makola/app/models"
	"github.com/kgyan/makola/app/repositories"
	pkggraphql "github.com/kgyan/makola/pkg/graphql"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/response"
)

var orderItemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderItem",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.Int, Resolve: fieldOf(func(i models.OrderItem) interface{} { return i.ID })},
		"productName": &graphql.Field{Type: graphql.String, Resolve: fieldOf(func(i models.OrderItem) interface{} { return i.ProductName })},
		"quantity":    &graphql.Field{Type: graphql.Int, Resolve: fieldOf(func(i models.OrderItem) interface{} { return i.Quantity })},
		"unitPrice":   &graphql.Field{Type: graphql.Float, Resolve: fieldOf(func(i models.OrderItem) interface{} { return i.UnitPrice })},
		"lineTotal":   &graphql.Field{Type: graphql.Float, Resolve: fieldOf(func(i models.OrderItem) interface{} { return i.LineTotal })},
	},
})

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.Int, Resolve: orderField(func(o models.Order) interface{} { return o.ID })},
		"number":     &graphql.Field{Type: graphql.String, Resolve: orderField(func(o models.Order) interface{} { return o.Number })},
		"status":     &graphql.Field{Type: graphql.String, Resolve: orderField(func(o models.Order) interface{} { return string(o.Status) })},
		"subtotal":   &graphql.Field{Type: graphql.Float, Resolve: orderField(func(o models.Order) interface{} { return o.Subtotal })},
		"shopperFee": &graphql.Field{Type: graphql.Float, Resolve: orderField(func(o models.Order) interface{} { return o.ShopperFee })},
		"total":      &graphql.Field{Type: graphql.Float, Resolve: orderField(func(o models.Order) interface{} { return o.Total })},
		"items":      &graphql.Field{Type: graphql.NewList(orderItemType), Resolve: orderField(func(o models.Order) interface{} { return o.Items })},
	},
})

var jobType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ShopperJob",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.Int, Resolve: jobField(func(j models.ShopperJob) interface{} { return j.ID })},
		"orderId":    &graphql.Field{Type: graphql.Int, Resolve: jobField(func(j models.ShopperJob) interface{} { return j.OrderID })},
		"status":     &graphql.Field{Type: graphql.String, Resolve: jobField(func(j models.ShopperJob) interface{} { return string(j.Status) })},
		"commission": &graphql.Field{Type: graphql.Float, Resolve: jobField(func(j models.ShopperJob) interface{} { return j.Commission })},
	},
})

func fieldOf(fn func(models.OrderItem) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if item, ok := p.Source.(models.OrderItem); ok {
			return fn(item), nil
		}
		return nil, nil
	}
}

func orderField(fn func(models.Order) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if order, ok := p.Source.(models.Order); ok {
			return fn(order), nil
		}
		return nil, nil
	}
}

func jobField(fn func(models.ShopperJob) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		if job, ok := p.Source.(models.ShopperJob); ok {
			return fn(job), nil
		}
		return nil, nil
	}
}

func rootQuery() *graphql.Object {
	orders := repositories.NewOrderRepository()
	jobsRepo := repositories.NewJobRepository()

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					return orders.FindByID(uint(id))
				},
			},
			"availableJobs": &graphql.Field{
				Type: graphql.NewList(jobType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return jobsRepo.Available()
				},
			},
		},
	})
}

// Handler returns the POST /graphql endpoint. Admin-gated at the route.
func Handler() http.HandlerFunc {
	schema, err := pkggraphql.NewSchema(rootQuery())
	if err != nil {
		logger.Error("graphql schema build failed", "error", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "invalid JSON")
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  body.Query,
			VariableValues: body.Variables,
			Context:        r.Context(),
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result) //nolint:errcheck
	}
}
