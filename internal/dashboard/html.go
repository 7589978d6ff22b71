package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SecondPrice Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.running { background: #166534; color: #4ade80; }
        .status.stopped { background: #991b1b; color: #fca5a5; }
        .status.idle { background: #854d0e; color: #fde047; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; transition: transform 0.2s; }
        .card:hover { transform: translateY(-2px); }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 2rem; font-weight: 700; color: #f1f5f9; }
        .card .sub { font-size: 0.875rem; color: #64748b; margin-top: 0.25rem; }
        .card.accent { border-color: #38bdf8; }
        .card.accent .value { color: #38bdf8; }
        .card.success { border-color: #4ade80; }
        .card.success .value { color: #4ade80; }
        .card.warning { border-color: #fbbf24; }
        .card.warning .value { color: #fbbf24; }
        .card.error { border-color: #f87171; }
        .card.error .value { color: #f87171; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>SecondPrice Dashboard</h1>
        <span class="status idle" id="platforms">-</span>
    </div>
    <div class="grid" id="stats">
        <div class="card accent"><div class="label">Searches</div><div class="value" id="searches_total">0</div></div>
        <div class="card"><div class="label">Platform Searches</div><div class="value" id="platform_searches">0</div></div>
        <div class="card error"><div class="label">Platform Failures</div><div class="value" id="platform_failures">0</div></div>
        <div class="card warning"><div class="label">Platform Timeouts</div><div class="value" id="platform_timeouts">0</div></div>
        <div class="card success"><div class="label">Listings Returned</div><div class="value" id="listings_returned">0</div></div>
        <div class="card accent"><div class="label">Detail Lookups</div><div class="value" id="detail_lookups">0</div></div>
        <div class="card error"><div class="label">Detail Failures</div><div class="value" id="detail_failures">0</div></div>
        <div class="card"><div class="label">Fetches</div><div class="value" id="fetches_total">0</div></div>
        <div class="card warning"><div class="label">Retries</div><div class="value" id="retries_total">0</div></div>
        <div class="card error"><div class="label">Rate-Limit Blocks</div><div class="value" id="rate_limit_blocks">0</div></div>
        <div class="card accent"><div class="label">Browser Pages Open</div><div class="value" id="browser_pages_open">0</div></div>
        <div class="card error"><div class="label">History Errors</div><div class="value" id="history_errors">0</div></div>
        <div class="card"><div class="label">Bytes Downloaded</div><div class="value" id="bytes_downloaded">0</div><div class="sub" id="bytes_human"></div></div>
        <div class="card"><div class="label">Uptime</div><div class="value" id="uptime">0s</div></div>
    </div>
    <div class="footer">SecondPrice, refreshes every 2s</div>
    <script>
        const keys = ['searches_total','platform_searches','platform_failures','platform_timeouts','listings_returned','detail_lookups','detail_failures','fetches_total','retries_total','rate_limit_blocks','browser_pages_open','history_errors'];
        async function refresh() {
            try {
                const r = await fetch(location.pathname.replace(/\/$/, '') + '/stats');
                const d = await r.json();
                const p = document.getElementById('platforms');
                p.textContent = (d.platforms || []).join(', ') || 'no platforms';
                p.className = 'status ' + ((d.platforms || []).length ? 'running' : 'stopped');
                keys.forEach(k => {
                    const el = document.getElementById(k);
                    if (el && d[k] !== undefined) el.textContent = Number(d[k]).toLocaleString();
                });
                const b = document.getElementById('bytes_downloaded');
                if (b && d.bytes_downloaded) { b.textContent = Number(d.bytes_downloaded).toLocaleString(); document.getElementById('bytes_human').textContent = humanize(d.bytes_downloaded); }
                const u = document.getElementById('uptime');
                if (u && d.uptime) u.textContent = d.uptime;
            } catch(e) {}
        }
        function humanize(b) { const u=['B','KB','MB','GB']; let i=0; while(b>=1024&&i<u.length-1){b/=1024;i++;} return b.toFixed(1)+' '+u[i]; }
        setInterval(refresh, 2000);
        refresh();
    </script>
</body>
</html>`
