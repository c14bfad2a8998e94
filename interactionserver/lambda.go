package interactionserver

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler is the function shape lambda.Start expects.
type LambdaHandler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// Lambda adapts the handler to API Gateway v2 for serverless deployments:
//
//	lambda.Start(h.Lambda())
func (h *Handler) Lambda() LambdaHandler {
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		if m := req.RequestContext.HTTP.Method; m != "" && m != http.MethodPost {
			return lambdaText(http.StatusMethodNotAllowed, "method not allowed"), nil
		}

		body := []byte(req.Body)
		if req.IsBase64Encoded {
			dec, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				return lambdaText(http.StatusBadRequest, "invalid base64 body"), nil
			}
			body = dec
		}
		if int64(len(body)) > h.maxBody {
			return lambdaText(http.StatusRequestEntityTooLarge, "payload too large"), nil
		}

		status, out := h.process(ctx, body,
			lambdaHeader(req.Headers, headerSignature),
			lambdaHeader(req.Headers, headerTimestamp),
		)
		resp := events.APIGatewayV2HTTPResponse{StatusCode: status, Body: string(out)}
		if status == http.StatusOK {
			resp.Headers = map[string]string{"Content-Type": "application/json"}
		}
		return resp, nil
	}
}

// lambdaHeader tolera las dos formas de casing que API Gateway entrega.
func lambdaHeader(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	return headers[strings.ToLower(name)]
}

func lambdaText(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{StatusCode: status, Body: body}
}
