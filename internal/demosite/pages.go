package demosite

import "html/template"

var (
	loginTmpl = template.Must(template.New("login").Parse(loginHTML))
	indexTmpl = template.Must(template.New("index").Parse(indexHTML))
	salesTmpl = template.Must(template.New("sales").Parse(salesHTML))
	opsTmpl   = template.Must(template.New("ops").Parse(opsHTML))
	liveTmpl  = template.Must(template.New("live").Parse(liveHTML))
)

const baseCSS = `
body { font-family: sans-serif; margin: 2rem; background: #f5f6f8; color: #222; }
h1 { margin-top: 0; }
a { color: #2a6fd6; }
.tile { display: inline-block; background: #fff; border: 1px solid #ddd; border-radius: 6px;
        padding: 1rem 1.5rem; margin: 0 1rem 1rem 0; min-width: 10rem; vertical-align: top; }
.tile h2 { font-size: 0.9rem; text-transform: uppercase; color: #666; margin: 0 0 .5rem; }
.tile .value { font-size: 1.6rem; font-weight: bold; margin: 0; }
table { border-collapse: collapse; background: #fff; }
th, td { border: 1px solid #ddd; padding: .4rem .8rem; text-align: left; }
.lk-loading, .dashboard-loading { padding: 1rem; background: #fff3cd; border: 1px solid #ffe69c; }
.loading-spinner { width: 1rem; height: 1rem; border: 3px solid #ccc; border-top-color: #2a6fd6;
                   border-radius: 50%; animation: spin 0.8s linear infinite; }
@keyframes spin { to { transform: rotate(360deg); } }
.page-navigation button { padding: .4rem 1rem; margin-right: .25rem; border: 1px solid #ccc;
                          background: #eee; cursor: pointer; }
.page-navigation button.active { background: #fff; border-bottom-color: #fff; font-weight: bold; }
.error { color: #b00020; }
`

const loginHTML = `<!DOCTYPE html>
<html>
<head><title>Katari Demo - Sign in</title><style>` + baseCSS + `</style></head>
<body>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
  <p><label>Username <input type="text" name="username" autofocus></label></p>
  <p><label>Password <input type="password" name="password"></label></p>
  <p><button type="submit">Sign in</button></p>
</form>
<p>Any username and password work. The session lives in a cookie.</p>
</body>
</html>
`

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Katari Demo - Dashboards</title><style>` + baseCSS + `</style></head>
<body>
<h1>Dashboards</h1>
<p>Signed in as <strong>{{.User}}</strong>. <a href="/logout">Sign out</a></p>
<ul>
  <li><a href="/dashboards/sales">Sales Performance</a> (single page, settles after a delay)</li>
  <li><a href="/dashboards/ops">Operations Review</a> (three pages with a page switcher)</li>
  <li><a href="/dashboards/live">Live Ticker</a> (never settles)</li>
</ul>
<script>
  localStorage.setItem('katari.demo.user', {{.User}});
</script>
</body>
</html>
`

// salesHTML clears its overlay at DelayMS and the tile spinners at twice
// that, so readiness needs the full quiet period and not the first drop.
const salesHTML = `<!DOCTYPE html>
<html>
<head><title>Sales Performance</title><style>` + baseCSS + `</style></head>
<body>
<h1>Sales Performance</h1>
<div class="lk-loading" id="overlay">Loading dashboard...</div>
<div id="tiles">
  <div class="tile"><h2>Revenue</h2><div class="loading-spinner"></div><p class="value" data-metric="revenue"></p></div>
  <div class="tile"><h2>Orders</h2><div class="loading-spinner"></div><p class="value" data-metric="orders"></p></div>
  <div class="tile"><h2>Conversion</h2><div class="loading-spinner"></div><p class="value" data-metric="conversion"></p></div>
</div>
<table id="breakdown" hidden>
  <tr><th>Region</th><th>Revenue</th><th>Orders</th></tr>
  <tr><td>EMEA</td><td>$512,300</td><td>1,832</td></tr>
  <tr><td>AMER</td><td>$488,100</td><td>1,590</td></tr>
  <tr><td>APAC</td><td>$284,500</td><td>1,104</td></tr>
</table>
<script>
  var delay = {{.DelayMS}};
  setTimeout(function () {
    document.getElementById('overlay').remove();
  }, delay);
  setTimeout(function () {
    document.querySelectorAll('.loading-spinner').forEach(function (el) { el.remove(); });
    document.querySelector('[data-metric="revenue"]').textContent = '$1,284,900';
    document.querySelector('[data-metric="orders"]').textContent = '4,526';
    document.querySelector('[data-metric="conversion"]').textContent = '3.1%';
    document.getElementById('breakdown').hidden = false;
  }, delay * 2);
</script>
</body>
</html>
`

const opsHTML = `<!DOCTYPE html>
<html>
<head><title>Operations Review</title><style>` + baseCSS + `</style></head>
<body>
<h1>Operations Review</h1>
<nav class="page-navigation" aria-label="Report pages">
  <button class="active" data-page="overview">Overview</button>
  <button data-page="detail">Detail</button>
  <button data-page="trends">Trends</button>
</nav>
<div class="lk-loading" id="overlay">Loading dashboard...</div>
<section class="report-page" id="page-overview">
  <div class="tile"><h2>Uptime</h2><p class="value">99.96%</p></div>
  <div class="tile"><h2>Open incidents</h2><p class="value">3</p></div>
  <div class="tile"><h2>Deploys this week</h2><p class="value">27</p></div>
</section>
<section class="report-page" id="page-detail" hidden>
  <table>
    <tr><th>Service</th><th>p95 latency</th><th>Error rate</th></tr>
    <tr><td>checkout</td><td>212 ms</td><td>0.4%</td></tr>
    <tr><td>search</td><td>145 ms</td><td>0.1%</td></tr>
    <tr><td>billing</td><td>389 ms</td><td>1.2%</td></tr>
  </table>
</section>
<section class="report-page" id="page-trends" hidden>
  <div class="tile"><h2>Incident trend</h2><p class="value">-18% month over month</p></div>
  <div class="tile"><h2>MTTR</h2><p class="value">41 min</p></div>
</section>
<script>
  var switchDelay = {{.SwitchDelayMS}};
  setTimeout(function () {
    document.getElementById('overlay').remove();
  }, {{.DelayMS}});
  document.querySelectorAll('.page-navigation button').forEach(function (btn) {
    btn.addEventListener('click', function () {
      document.querySelectorAll('.page-navigation button').forEach(function (b) {
        b.classList.toggle('active', b === btn);
      });
      document.querySelectorAll('.report-page').forEach(function (s) { s.hidden = true; });
      var section = document.getElementById('page-' + btn.dataset.page);
      section.hidden = false;
      var spin = document.createElement('div');
      spin.className = 'loading-spinner';
      section.prepend(spin);
      setTimeout(function () { spin.remove(); }, switchDelay);
    });
  });
</script>
</body>
</html>
`

// liveHTML keeps its loading indicator forever; the ticker rows keep
// arriving over the websocket. Capture has to time out and proceed.
const liveHTML = `<!DOCTYPE html>
<html>
<head><title>Live Ticker</title><style>` + baseCSS + `</style></head>
<body>
<h1>Live Ticker</h1>
<div class="dashboard-loading">Waiting for live data...</div>
<table id="ticks">
  <tr><th>#</th><th>At</th><th>Value</th></tr>
</table>
<script>
  var ws = new WebSocket('ws://' + location.host + '/ws/ticker');
  ws.onmessage = function (ev) {
    var tick = JSON.parse(ev.data);
    var row = document.createElement('tr');
    row.innerHTML = '<td>' + tick.seq + '</td><td>' + tick.at + '</td><td>' + tick.value.toFixed(2) + '</td>';
    var table = document.getElementById('ticks');
    table.appendChild(row);
    while (table.rows.length > 11) { table.deleteRow(1); }
  };
</script>
</body>
</html>
`
