package main

import (
	"html/template"
	"net/http"
)

// clientHandler serves a websocket client that registers the code given in
// its own query string and logs every event it receives.
//     http://localhost:8080/?code=abc123
type clientHandler struct{}

func (clientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	clientTemplate.Execute(w, templateArgs{Code: r.URL.Query().Get("code")})
}

type templateArgs struct {
	Code string
}

var clientTemplate = template.Must(template.New("clientTemplate").Parse(`
<html>
<head>
<title>notifyhub {{.Code}}</title>
<script type="text/javascript">
window.onload = function() {
    var code = {{.Code}};
    var log = document.getElementById("log");

    function appendLog(text) {
        var d = document.createElement("div");
        d.textContent = text;
        log.appendChild(d);
        log.scrollTop = log.scrollHeight - log.clientHeight;
    }

    if (!window["WebSocket"]) {
        appendLog("Your browser does not support WebSockets.");
        return;
    }
    var scheme = location.protocol === "https:" ? "wss://" : "ws://";
    var conn = new WebSocket(scheme + location.host + "/");
    conn.onclose = function() {
        appendLog("Connection closed.");
    };
    conn.onmessage = function(evt) {
        var f = JSON.parse(evt.data);
        appendLog(f.event + " " + JSON.stringify(f.data));
        if (f.event === "WELCOME" && code) {
            conn.send(JSON.stringify({event: "REGISTER", data: {code: code}}));
        }
    };
};
</script>
<style type="text/css">
body {
    padding: 0.5em;
    margin: 0;
    background: gray;
}

#log {
    background: white;
    padding: 0.5em;
    height: 90%;
    overflow: auto;
    font-family: monospace;
}
</style>
</head>
<body>
<h3>Websocket client for code {{.Code}}</h3>
<div id="log"></div>
</body>
</html>
`))
