package main

import (
	"net/http"
	"strconv"

	"github.com/bluesky-social/fedperson/models"
	"github.com/bluesky-social/fedperson/personstore"

	"github.com/labstack/echo/v4"
)

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Message string `json:"msg,omitempty"`
}

func (svc *Service) HandleHealthCheck(c echo.Context) error {
	if err := svc.store.Healthcheck(c.Request().Context()); err != nil {
		svc.logger.Error("healthcheck can't connect to database", "err", err)
		return c.JSON(http.StatusServiceUnavailable, HealthStatus{Status: "error", Message: "can't connect to database"})
	}
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok"})
}

func personIDParam(c echo.Context) (models.PersonID, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid person id")
	}
	return models.PersonID(id), nil
}

// found converts the nil-for-absent lookups into a 404
func found(c echo.Context, p *models.Person, err error) error {
	if err != nil {
		return err
	}
	if p == nil {
		return personstore.ErrNotFound
	}
	return c.JSON(http.StatusOK, p)
}

func (svc *Service) HandleCreatePerson(c echo.Context) error {
	var form personstore.PersonInsertForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	if form.Name == "" || form.PublicKey == "" || form.InstanceID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name, public_key and instance_id are required")
	}
	p, err := svc.store.Create(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (svc *Service) HandleUpsertPerson(c echo.Context) error {
	var form personstore.PersonInsertForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	if form.Name == "" || form.PublicKey == "" || form.InstanceID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name, public_key and instance_id are required")
	}
	p, err := svc.store.Upsert(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (svc *Service) HandleGetPerson(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	p, err := svc.store.Read(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (svc *Service) HandleUpdatePerson(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	var form personstore.PersonUpdateForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	p, err := svc.store.Update(c.Request().Context(), id, &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (svc *Service) HandleDeletePerson(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	p, err := svc.store.DeleteAccount(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (svc *Service) HandleGetPersonByApID(c echo.Context) error {
	apID := c.QueryParam("ap_id")
	if apID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ap_id query parameter required")
	}
	p, err := svc.store.ReadFromExternalID(c.Request().Context(), apID)
	return found(c, p, err)
}

func (svc *Service) HandleGetPersonByLocalName(c echo.Context) error {
	includeDeleted := false
	if v := c.QueryParam("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid include_deleted flag")
		}
		includeDeleted = b
	}
	p, err := svc.store.ReadByLocalName(c.Request().Context(), c.Param("name"), includeDeleted)
	return found(c, p, err)
}

func (svc *Service) HandleResolvePerson(c echo.Context) error {
	name := c.QueryParam("name")
	domain := c.QueryParam("domain")
	if name == "" || domain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and domain query parameters required")
	}
	p, err := svc.store.ReadByNameAndDomain(c.Request().Context(), name, domain)
	return found(c, p, err)
}

func (svc *Service) HandleNameAvailable(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name query parameter required")
	}
	if err := svc.store.CheckNameAvailable(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"name": name, "available": true})
}

func (svc *Service) HandleGetPersonURL(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	p, err := svc.store.Read(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !p.Local {
		return c.JSON(http.StatusOK, map[string]string{"url": p.ApID})
	}
	u, err := svc.store.LocalURL(p.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

func (svc *Service) HandleListCommunities(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	ids, err := svc.store.ListLocalCommunityIDs(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"communities": ids})
}

func (svc *Service) HandleListFollowers(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	followers, err := svc.store.ListFollowers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"followers": followers})
}

func (svc *Service) HandleFollow(c echo.Context) error {
	var form personstore.PersonFollowerForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	f, err := svc.store.Follow(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (svc *Service) HandleUnfollow(c echo.Context) error {
	var form personstore.PersonFollowerForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	cnt, err := svc.store.Unfollow(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cnt)
}

func (svc *Service) HandleBlock(c echo.Context) error {
	var form personstore.PersonBlockForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	b, err := svc.store.Block(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (svc *Service) HandleUnblock(c echo.Context) error {
	var form personstore.PersonBlockForm
	if err := c.Bind(&form); err != nil {
		return err
	}
	cnt, err := svc.store.Unblock(c.Request().Context(), &form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cnt)
}

// HandleAdminPurgePerson hard-deletes a person and everything they authored.
func (svc *Service) HandleAdminPurgePerson(c echo.Context) error {
	id, err := personIDParam(c)
	if err != nil {
		return err
	}
	n, err := svc.store.Purge(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"purged": n})
}
