package demosite

const homePageHardened = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>LedgerLoop - Bookkeeping that runs itself</title>
  <meta name="description" content="LedgerLoop reconciles your books automatically so you can focus on the business.">
  <link rel="canonical" href="/">
  <meta property="og:title" content="LedgerLoop">
</head>
<body>
  <h1>Bookkeeping that runs itself</h1>
  <p>LedgerLoop connects to your accounts and reconciles every transaction
  automatically. Your data is protected with bank-level encryption and we are
  SOC 2 Type II certified. We never sell your data and we are fully
  GDPR-compliant. Read our <a href="/privacy">privacy policy</a>.</p>
  <p><a href="/pricing">See pricing</a></p>
  <img src="/static/hero.png" alt="Dashboard screenshot">
  <form action="/login" method="post">
    <input type="hidden" name="csrf_token" value="d3m0-csrf-t0k3n">
    <input type="email" name="email" placeholder="Email">
    <input type="password" name="password" placeholder="Password">
    <button type="submit">Sign in</button>
  </form>
  <a href="https://accounts.google.com/o/oauth2/v2/auth?client_id=demo">Continue with Google</a>
</body>
</html>`

const homePageSloppy = `<!doctype html>
<html>
<head>
  <title>LedgerLoop</title>
</head>
<body>
  <h1>Bookkeeping that runs itself</h1>
  <h1>Welcome to Next.js!</h1>
  <p>Lorem ipsum dolor sit amet, consectetur adipiscing elit.</p>
  <p>Your data is protected with military-grade encryption. We never sell
  your data.</p>
  <form action="/login" method="post">
    <input type="email" name="email" placeholder="Email">
    <input type="password" name="password" placeholder="Password">
    <button type="submit">Sign in</button>
  </form>
  <img src="http://cdn.example.com/hero.png">
  <script>
    const supabase = createClient("https://demo.supabase.co", "anon-key");
  </script>
</body>
</html>`

const pricingPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Pricing - LedgerLoop</title>
  <meta name="description" content="Simple pricing for teams of every size.">
  <link rel="canonical" href="/pricing">
</head>
<body>
  <h1>Pricing</h1>
  <p>Starter is free forever. Growth is $29 per month and includes unlimited
  reconciliations, priority support and custom exports.</p>
</body>
</html>`

const loginPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Sign in - LedgerLoop</title>
</head>
<body>
  <h1>Sign in</h1>
  <form action="/login" method="post">
    <input type="hidden" name="csrf_token" value="d3m0-csrf-t0k3n">
    <input type="email" name="email" placeholder="Email">
    <input type="password" name="password" placeholder="Password">
    <button type="submit">Sign in</button>
  </form>
</body>
</html>`

const dashboardPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Dashboard - LedgerLoop</title>
</head>
<body>
  <h1>Your books</h1>
  <p>All accounts reconciled. Nothing needs your attention.</p>
</body>
</html>`
