package server

import (
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.deps.Page.Document()))
}

func (s *Server) handleAppJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(appJS))
}

// PageHTML is the page shell. The joke container is ul.jokes.
const PageHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <title>Jokes</title>
  <style>
    body { font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Arial; margin: 18px; }
    .row { display:flex; gap:12px; flex-wrap:wrap; align-items:center; }
    .pill { padding: 6px 10px; border: 1px solid #ddd; border-radius: 999px; font-size: 12px; background:#fff; }
    button { padding: 8px 12px; border-radius: 10px; border: 1px solid #111; background:#111; color:#fff; cursor:pointer;}
    button.secondary { background:#fff; color:#111; }
    ul.jokes { list-style:none; padding:0; margin-top: 14px; }
    ul.jokes li { padding: 10px; border-bottom: 1px solid #f1f1f1; display:flex; gap:12px; align-items:flex-start; justify-content:space-between; }
    .question { cursor: default; }
    .joke-block { margin-top: 6px; color:#333; }
    .joke-block p { margin: 2px 0; }
    .error-container { border-left: 6px solid #d64545; background: rgba(214,69,69,0.08); border-radius: 8px; cursor:pointer; display:block !important; }
    .error-container p { margin: 2px 0; }
  </style>
</head>
<body>
  <h2>Jokes</h2>

  <div class="row">
    <button id="findJokes">Find Jokes</button>
    <button id="enableAudio" class="secondary">Enable audio</button>
    <span class="pill">Audio: <span id="audioStatus">disabled</span></span>
    <span class="pill">SSE: <span id="sseStatus">connecting…</span></span>
  </div>

  <ul class="jokes"></ul>

  <script src="/app.js"></script>
</body>
</html>
`

const appJS = `(() => {
  const list = document.querySelector('ul.jokes');
  const audioStatus = document.getElementById('audioStatus');
  const sseStatus = document.getElementById('sseStatus');

  const MAX_VOICE_QUEUE = 20;
  let audioEnabled = false;
  let queue = [];
  let playing = false;
  let current = null;

  function setAudio(s){ audioStatus.textContent = s; }
  function setSSE(s){ sseStatus.textContent = s; }

  async function swap(res){
    const html = await res.text();
    list.innerHTML = html;
  }

  async function refresh(){
    try {
      await swap(await fetch('/api/jokes/list'));
    } catch(e) {}
  }

  // --- audio queue ---
  function stopCurrent(){
    if (current) {
      try {
        current.onended = null;
        current.pause();
      } catch(e) {}
      current = null;
    }
    playing = false;
  }

  function pump(){
    if (!audioEnabled || playing) return;
    const next = queue.shift();
    if (!next) return;

    playing = true;
    const a = new Audio(next);
    current = a;
    a.onended = () => {
      if (current === a) current = null;
      playing = false;
      pump();
    };
    a.play().catch((e) => {
      console.warn('speech playback failed:', e);
      current = null;
      playing = false;
      pump();
    });
  }

  function enqueue(url){
    if (!url) return;
    queue.push(url);
    if (queue.length > MAX_VOICE_QUEUE) queue = queue.slice(queue.length - MAX_VOICE_QUEUE);
    pump();
  }

  function cancelSpeech(){
    queue = [];
    stopCurrent();
  }

  // --- UI controls ---
  document.getElementById('findJokes').addEventListener('click', async () => {
    try {
      await swap(await fetch('/api/jokes/find', { method: 'POST' }));
    } catch(e) {
      console.warn('find jokes failed:', e);
    }
  });

  document.getElementById('enableAudio').addEventListener('click', () => {
    audioEnabled = true;
    setAudio('enabled');
    pump();
  });

  function jokeIdOf(el){
    const li = el.closest('li');
    const btn = li ? li.querySelector('button.listen') : null;
    return btn ? btn.dataset.jokeId : null;
  }

  // one delegated registration per event kind
  list.addEventListener('mouseover', async (e) => {
    const q = e.target.closest('span.question');
    if (!q || q.contains(e.relatedTarget) || q.querySelector('.joke-block')) return;
    const id = jokeIdOf(q);
    if (id) await swap(await fetch('/api/jokes/' + id + '/hover', { method: 'POST' }));
  });

  list.addEventListener('mouseout', async (e) => {
    const q = e.target.closest('span.question');
    if (!q || q.contains(e.relatedTarget)) return;
    const id = jokeIdOf(q);
    if (id) await swap(await fetch('/api/jokes/' + id + '/hover', { method: 'DELETE' }));
  });

  list.addEventListener('click', async (e) => {
    const btn = e.target.closest('button.listen');
    if (btn) {
      await fetch('/api/jokes/' + btn.dataset.jokeId + '/listen', { method: 'POST' });
      return;
    }
    if (e.target.closest('.error-container')) {
      await swap(await fetch('/api/error/dismiss', { method: 'POST' }));
    }
  });

  // --- SSE ---
  const es = new EventSource('/events');
  es.onopen = () => setSSE('connected');
  es.onerror = () => setSSE('error / reconnecting…');
  es.onmessage = (msg) => {
    try {
      const ev = JSON.parse(msg.data);
      if (ev.type === 'render') { refresh(); return; }
      if (ev.type === 'cancel') { cancelSpeech(); return; }
      if (ev.type === 'utterance') enqueue(ev.audio_url);
    } catch(e) {}
  };

  setAudio('disabled');
})();
`
