package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/chat"
)

type chatApi struct {
	svc *chat.Service
}

func registerChatAPI(s *Server, g *echo.Group, authed []echo.MiddlewareFunc) {
	api := chatApi{svc: s.deps.ChatSvc}

	cg := g.Group("/chats", authed...)
	cg.GET("", api.inbox)
	cg.GET("/unread", api.unread)
	cg.GET("/:peer", api.history)
	cg.PUT("/:peer", api.open)
	cg.POST("/:peer", api.send)
	cg.POST("/:peer/read", api.markRead)
	cg.DELETE("/:peer", api.clear)
	cg.DELETE("/:peer/messages/:messageId", api.deleteMessage)
}

type (
	SendMessageRequest struct {
		Message string `json:"message"`
	}

	UnreadResponse struct {
		Count int `json:"count"`
	}

	MarkReadResponse struct {
		Marked int `json:"marked"`
	}
)

// Handlers

func (api *chatApi) inbox(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Inbox(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing conversations")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *chatApi) unread(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread conversations")
	}
	return ctx.JSON(http.StatusOK, UnreadResponse{Count: n})
}

func (api *chatApi) history(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	msgs, err := api.svc.History(ctx.Request().Context(), usr.ID, ctx.Param("peer"))
	if err != nil {
		return errors.Wrap(err, "loading messages")
	}
	return ctx.JSON(http.StatusOK, msgs)
}

// open creates the conversation with peer ahead of the first message.
func (api *chatApi) open(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	conv, err := api.svc.Open(ctx.Request().Context(), usr.ID, ctx.Param("peer"))
	if err != nil {
		return errors.Wrap(err, "opening conversation")
	}
	return ctx.JSON(http.StatusOK, conv)
}

func (api *chatApi) send(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data SendMessageRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}
	msg, err := api.svc.Send(ctx.Request().Context(), usr.ID, ctx.Param("peer"), data.Message)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *chatApi) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.MarkRead(ctx.Request().Context(), usr.ID, ctx.Param("peer"))
	if err != nil {
		return errors.Wrap(err, "marking conversation read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Marked: n})
}

func (api *chatApi) clear(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Clear(ctx.Request().Context(), usr.ID, ctx.Param("peer")); err != nil {
		return errors.Wrap(err, "clearing conversation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *chatApi) deleteMessage(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr.ID, ctx.Param("peer"), ctx.Param("messageId")); err != nil {
		return errors.Wrap(err, "deleting message")
	}
	return ctx.NoContent(http.StatusNoContent)
}
