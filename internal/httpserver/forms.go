package httpserver

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gdps-dev/gdps/internal/model"
)

// formInt reads an integer form field. Missing or malformed values read as 0.
func formInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(key)))
	if err != nil {
		return 0
	}
	return n
}

// formFlag reads a 0/1 form field.
func formFlag(c *gin.Context, key string) bool {
	return formInt(c, key) != 0
}

func browseRequest(c *gin.Context) model.BrowseRequest {
	return model.BrowseRequest{
		GameVersion:     formInt(c, "gameVersion"),
		BinaryVersion:   formInt(c, "binaryVersion"),
		UUID:            formInt(c, "uuid"),
		AccountID:       formInt(c, "accountID"),
		GJP2:            c.PostForm("gjp2"),
		Type:            model.QueryType(formInt(c, "type")),
		Query:           c.PostForm("str"),
		Page:            formInt(c, "page"),
		Difficulty:      c.PostFormArray("diff"),
		Length:          c.PostForm("len"),
		Followed:        c.PostForm("followed"),
		CompletedLevels: c.PostForm("completedLevels"),
		DemonFilter:     formInt(c, "demonFilter"),
		Uncompleted:     formFlag(c, "uncompleted"),
		OnlyCompleted:   formFlag(c, "onlyCompleted"),
		Featured:        formFlag(c, "featured"),
		Original:        formFlag(c, "original"),
		TwoPlayer:       formFlag(c, "twoPlayer"),
		Coins:           formFlag(c, "coins"),
		Epic:            formFlag(c, "epic"),
		Mythic:          formFlag(c, "mythic"),
		Legendary:       formFlag(c, "legendary"),
		Star:            formFlag(c, "star"),
		NoStar:          formFlag(c, "noStar"),
		Song:            formInt(c, "song"),
		CustomSong:      formFlag(c, "customSong"),
	}
}

func downloadRequest(c *gin.Context) model.DownloadRequest {
	return model.DownloadRequest{
		GameVersion: formInt(c, "gameVersion"),
		AccountID:   formInt(c, "accountID"),
		GJP2:        c.PostForm("gjp2"),
		LevelID:     formInt(c, "levelID"),
		Inc:         formFlag(c, "inc"),
	}
}

func userSearchRequest(c *gin.Context) model.UserSearchRequest {
	return model.UserSearchRequest{
		Query:  c.PostForm("str"),
		Page:   formInt(c, "page"),
		Secret: c.PostForm("secret"),
	}
}

// accountCommentsRequest reads the first accountID when the client repeats it.
func accountCommentsRequest(c *gin.Context) model.AccountCommentsRequest {
	return model.AccountCommentsRequest{
		AccountID: formInt(c, "accountID"),
		Page:      formInt(c, "page"),
	}
}
