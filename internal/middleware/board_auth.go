package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-board-api/internal/access"
	"github.com/yukikurage/kanban-board-api/internal/database"
	apierrors "github.com/yukikurage/kanban-board-api/internal/errors"
)

// RequireBoardAccess checks that the authenticated user can act on the
// board named by the :id parameter. Missing boards and missing permits
// both produce a generic 403 so the response never reveals whether the
// board exists.
func RequireBoardAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid board ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ok, err := access.HasBoardAccess(database.GetDB(), userID, boardID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Set("board_id", boardID)
		c.Next()
	}
}

// RequireBoardOwner checks strict ownership of the board named by the :id
// parameter. Owner-restricted operations (rename, archive, membership
// changes, delete) chain this after RequireBoardAccess.
func RequireBoardOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		boardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid board ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ok, err := access.IsBoardOwner(database.GetDB(), userID, boardID)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Set("board_id", boardID)
		c.Next()
	}
}

// GetBoardID retrieves the board ID stored by the board middleware.
func GetBoardID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get("board_id")
	if !exists {
		return 0, false
	}
	boardID, ok := value.(uint64)
	return boardID, ok
}
