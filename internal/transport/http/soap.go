package http

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/net/html/charset"

	"trivia-service/internal/domain"
)

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// soapRequest matches Envelope/Body/submitAnswer regardless of the prefix the client chose.
type soapRequest struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Submit *struct {
			Answer    string `xml:"answer"`
			Username  string `xml:"username"`
			SecretKey string `xml:"questionSecretKey"`
		} `xml:"submitAnswer"`
	} `xml:"Body"`
}

type soapEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	NS      string   `xml:"xmlns:soapenv,attr"`
	Body    soapBody `xml:"soapenv:Body"`
}

type soapBody struct {
	Result *soapResult `xml:"submitAnswer,omitempty"`
	Fault  *soapFault  `xml:"soapenv:Fault,omitempty"`
}

type soapResult struct {
	Result     string `xml:"result"`
	Username   string `xml:"username"`
	UserScore  int    `xml:"userScore"`
	PctCorrect string `xml:"pctCorrect"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (h *Handler) submitAnswerXML(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeFault(w, r, malformed(err))
		return
	}
	var req soapRequest
	dec := xml.NewDecoder(bytes.NewReader(body))
	// Python clients declare encoding='utf8'; non-UTF-8 declarations are transcoded.
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&req); err != nil {
		h.writeFault(w, r, malformed(err))
		return
	}
	if req.Body.Submit == nil {
		h.writeFault(w, r, fmt.Errorf("%w: missing submitAnswer", domain.ErrMalformedSubmission))
		return
	}

	res, err := h.trivia.Reconcile(r.Context(), domain.AnswerSubmission{
		Answer:    req.Body.Submit.Answer,
		Username:  req.Body.Submit.Username,
		SecretKey: req.Body.Submit.SecretKey,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeSOAP(w, http.StatusOK, soapBody{Result: &soapResult{
		Result:     res.Result,
		Username:   res.Username,
		UserScore:  res.UserScore,
		PctCorrect: strconv.Itoa(res.PctCorrect) + "%",
	}})
}

func (h *Handler) writeFault(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := h.describe(r, err)
	writeSOAP(w, status, soapBody{Fault: &soapFault{Code: code, String: msg}})
}

func writeSOAP(w http.ResponseWriter, status int, body soapBody) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(soapEnvelope{NS: soapEnvelopeNS, Body: body})
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrMalformedSubmission, err)
}
