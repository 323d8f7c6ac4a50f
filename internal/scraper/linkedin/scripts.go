package linkedin

// Every script takes one argument: the selector set plus call-specific fields.
const helpers = `
const safeAll = (root, s) => { try { return Array.from(root.querySelectorAll(s)); } catch (e) { return []; } };
const clean = (t) => (t || '').replace(/\s+/g, ' ').trim();
const firstText = (root, list) => {
  for (const s of list) {
    for (const el of safeAll(root, s)) {
      const t = clean(el.textContent).split(' · ')[0];
      if (t) return t;
    }
  }
  return '';
};
const findIn = (root, list) => {
  for (const s of list) {
    const el = safeAll(root, s)[0];
    if (el) return el;
  }
  return null;
};
const matchesAny = (el, list) => list.some((s) => {
  try { return el.matches(s) || !!el.querySelector(s); } catch (e) { return false; }
});
const allCards = (sel) => {
  for (const s of sel.card) {
    const found = safeAll(document, s).filter((el) => el.getAttribute(sel.idAttribute));
    if (found.length) return found;
  }
  return [];
};
const cardByID = (sel, id) => allCards(sel).find((el) => el.getAttribute(sel.idAttribute) === id) || null;
const boxOf = (sel, el) => (sel.container && el.closest(sel.container)) || el;
`

const cardsScript = `(sel) => {` + helpers + `
  const seen = new Set();
  const out = [];
  for (const el of allCards(sel)) {
    const id = el.getAttribute(sel.idAttribute);
    if (seen.has(id)) continue;
    seen.add(id);
    out.push({
      id,
      title: firstText(el, sel.title),
      company: firstText(el, sel.company),
      dismissed: matchesAny(el, sel.dismissed),
      hidden: boxOf(sel, el).dataset.jobcardHidden === '1',
    });
  }
  return out;
}`

const instrumentScript = `(sel) => {` + helpers + `
  let n = 0;
  for (const card of allCards(sel)) {
    const btn = findIn(card, sel.dismiss);
    if (!btn || btn.dataset.jobcardInstrumented === '1') continue;
    btn.dataset.jobcardInstrumented = '1';
    const id = card.getAttribute(sel.idAttribute);
    btn.addEventListener('click', (ev) => {
      if (!window.__jobcardControl) return;
      window.__jobcardControl({
        id,
        title: firstText(card, sel.title),
        company: firstText(card, sel.company),
        trusted: ev.isTrusted,
        marked: card.dataset.jobcardEngine === '1',
      });
    }, { capture: true });
    n++;
  }
  return n;
}`

const dismissScript = `(sel) => {` + helpers + `
  const card = cardByID(sel, sel.id);
  if (!card) return false;
  const btn = findIn(card, sel.dismiss);
  if (!btn || !btn.isConnected) return false;
  btn.click();
  return true;
}`

const markerScript = `(sel) => {` + helpers + `
  const card = cardByID(sel, sel.id);
  if (!card) return false;
  if (sel.on) card.dataset.jobcardEngine = '1';
  else delete card.dataset.jobcardEngine;
  return true;
}`

const hideScript = `(sel) => {` + helpers + `
  let n = 0;
  for (const id of sel.ids) {
    const card = cardByID(sel, id);
    if (!card) continue;
    const box = boxOf(sel, card);
    if (box.dataset.jobcardHidden === '1') continue;
    box.dataset.jobcardHidden = '1';
    box.style.display = 'none';
    n++;
  }
  return n;
}`

const restoreScript = `(sel) => {` + helpers + `
  const card = cardByID(sel, sel.id);
  if (!card) return false;
  const box = boxOf(sel, card);
  delete box.dataset.jobcardHidden;
  box.style.display = '';
  if (matchesAny(card, sel.dismissed)) {
    const undo = findIn(box, sel.undo);
    if (undo) undo.click();
  }
  return true;
}`

const unhideAllScript = `() => {
  let n = 0;
  for (const box of document.querySelectorAll('[data-jobcard-hidden]')) {
    delete box.dataset.jobcardHidden;
    box.style.display = '';
    n++;
  }
  return n;
}`

// observerScript reports DOM changes, throttled, through __jobcardMutation.
const observerScript = `(() => {
  if (window.__jobcardObserver) return;
  let queued = false;
  window.__jobcardObserver = new MutationObserver(() => {
    if (queued) return;
    queued = true;
    setTimeout(() => {
      queued = false;
      if (window.__jobcardMutation) window.__jobcardMutation();
    }, 100);
  });
  const start = () => window.__jobcardObserver.observe(document.body, {
    childList: true,
    subtree: true,
    attributes: true,
    attributeFilter: ['class'],
  });
  if (document.body) start();
  else document.addEventListener('DOMContentLoaded', start);
})()`
