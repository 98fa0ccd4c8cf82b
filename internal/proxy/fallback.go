package proxy

// fallbackHTML is served when no frontend origin is configured, or with a
// 502 when the origin cannot be reached.
const fallbackHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Areca</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { font-family: system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; padding: 2rem; line-height: 1.6; }
      code { background: #f4f4f4; padding: 0.2rem 0.4rem; border-radius: 4px; }
    </style>
  </head>
  <body>
    <h1>Areca gateway</h1>
    <p>The gateway is running, but no frontend origin has been configured for root requests.</p>
    <p>Set <code>gateway.frontend_origin</code> in the config file, or the <code>FRONTEND_ORIGIN</code> environment variable, so the gateway can proxy your built frontend.</p>
    <p>Example: <code>FRONTEND_ORIGIN=https://areca-frontend.pages.dev</code>.</p>
    <p>API endpoints remain available under <code>/api/*</code> (try <a href="/api/health">/api/health</a>).</p>
  </body>
</html>`
