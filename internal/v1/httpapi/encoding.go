package httpapi

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"
)

func decodeBase64Header(c *gin.Context, header string) ([]byte, error) {
	v := c.GetHeader(header)
	if v == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(v)
}

func encodeBase64(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
