package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

type peopleApi struct {
	deps Deps
}

func registerPeopleAPI(g *echo.Group, deps Deps, jwt, admin echo.MiddlewareFunc) {
	api := peopleApi{deps: deps}

	pg := g.Group("/people", jwt, admin)
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)

	g.GET("/teachers", api.queryTeachers, jwt, admin)
}

// create provisions a person. Provider and mail failures do not fail the request: see the step outcomes.
func (api *peopleApi) create(ctx echo.Context) error {
	var data person.NewPerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPerson")
	}

	res, err := api.deps.Orchestrator.ProvisionPerson(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *peopleApi) query(ctx echo.Context) error {
	filter := new(person.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []person.Person{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	people, err := api.deps.People.QueryPeople(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying people")
	}
	return ctx.JSON(http.StatusOK, people)
}

func (api *peopleApi) retrieve(ctx echo.Context) error {
	p, err := api.deps.People.GetPersonByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding person")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *peopleApi) queryTeachers(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.deps.Teachers.QueryTeachers(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}
